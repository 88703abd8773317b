package call

import (
	"encoding/json"
	"fmt"
	"log/slog"

	pion "github.com/pion/webrtc/v4"

	"github.com/faizanamer123/openassign-call/internal/config"
	"github.com/faizanamer123/openassign-call/internal/netutil"
)

// PeerConnection is the subset of a WebRTC peer connection the adapter
// drives. *webrtc.PeerConnection satisfies it.
type PeerConnection interface {
	CreateOffer(options *pion.OfferOptions) (pion.SessionDescription, error)
	CreateAnswer(options *pion.AnswerOptions) (pion.SessionDescription, error)
	SetLocalDescription(desc pion.SessionDescription) error
	SetRemoteDescription(desc pion.SessionDescription) error
	AddICECandidate(candidate pion.ICECandidateInit) error
	AddTrack(track pion.TrackLocal) (*pion.RTPSender, error)
	OnICECandidate(f func(*pion.ICECandidate))
	OnConnectionStateChange(f func(pion.PeerConnectionState))
	Close() error
}

// Peer is a pion peer connection with its control channel.
type Peer struct {
	*pion.PeerConnection
	Control *ControlChannel

	// Policy is the ICE transport policy the connection was created with.
	Policy pion.ICETransportPolicy
}

var detectRestrictedNetwork = netutil.ShouldForceRelay

// TransportPolicy returns relay-only when a TURN server is configured and
// relaying was requested or the local network looks like a VPN or CGNAT.
func TransportPolicy(cfg *config.Config) pion.ICETransportPolicy {
	if cfg.GetTURNServers() != nil && (cfg.ForceRelay || detectRestrictedNetwork()) {
		return pion.ICETransportPolicyRelay
	}
	return pion.ICETransportPolicyAll
}

// ICEServers builds the ICE server list from configuration.
func ICEServers(cfg *config.Config) []pion.ICEServer {
	var servers []pion.ICEServer
	if stun := cfg.GetSTUNServers(); len(stun) > 0 {
		servers = append(servers, pion.ICEServer{URLs: stun})
	}
	if turn := cfg.GetTURNServers(); turn != nil {
		username, password := cfg.GetTURNCredentials()
		servers = append(servers, pion.ICEServer{
			URLs:       turn,
			Username:   username,
			Credential: password,
		})
	}
	return servers
}

// NewPeer creates a pion peer connection configured for cfg's ICE servers.
func NewPeer(cfg *config.Config, log *slog.Logger) (*Peer, error) {
	if log == nil {
		log = slog.Default()
	}

	policy := TransportPolicy(cfg)
	pc, err := pion.NewPeerConnection(pion.Configuration{
		ICEServers:         ICEServers(cfg),
		ICETransportPolicy: policy,
	})
	if err != nil {
		return nil, NewError("create peer connection", err)
	}

	control, err := newControlChannel(pc, log)
	if err != nil {
		pc.Close()
		return nil, err
	}
	return &Peer{PeerConnection: pc, Control: control, Policy: policy}, nil
}

// parseSDP accepts a session description object or a bare SDP string.
func parseSDP(raw json.RawMessage, want pion.SDPType) (pion.SessionDescription, error) {
	if len(raw) == 0 {
		return pion.SessionDescription{}, WrapError("parse sdp", ErrUnexpectedSignal, "empty payload")
	}

	var text string
	if err := json.Unmarshal(raw, &text); err == nil {
		return pion.SessionDescription{Type: want, SDP: text}, nil
	}

	var desc pion.SessionDescription
	if err := json.Unmarshal(raw, &desc); err != nil {
		return pion.SessionDescription{}, NewError("parse sdp", err)
	}
	if desc.Type != want {
		return pion.SessionDescription{}, WrapError("parse sdp", ErrUnexpectedSignal,
			fmt.Sprintf("got %s, want %s", desc.Type, want))
	}
	return desc, nil
}

// parseCandidate accepts an RTCIceCandidateInit object or a bare
// candidate string.
func parseCandidate(raw json.RawMessage) (pion.ICECandidateInit, error) {
	if len(raw) == 0 {
		return pion.ICECandidateInit{}, WrapError("parse ICE candidate", ErrUnexpectedSignal, "empty payload")
	}

	var text string
	if err := json.Unmarshal(raw, &text); err == nil {
		return pion.ICECandidateInit{Candidate: text}, nil
	}

	var ice pion.ICECandidateInit
	if err := json.Unmarshal(raw, &ice); err != nil {
		return pion.ICECandidateInit{}, NewError("parse ICE candidate", err)
	}
	return ice, nil
}
