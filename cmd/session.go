package cmd

import (
	"context"
	"log/slog"
	"sync"
	"time"

	pion "github.com/pion/webrtc/v4"

	"github.com/faizanamer123/openassign-call/internal/call"
	"github.com/faizanamer123/openassign-call/internal/config"
	"github.com/faizanamer123/openassign-call/internal/dns"
	"github.com/faizanamer123/openassign-call/internal/sigclient"
	"github.com/faizanamer123/openassign-call/internal/ui"
)

func LoadConfig(opts config.Options) (*config.Config, error) {
	cfg, err := config.Load(opts)
	if err != nil {
		return nil, call.NewError("load config", err)
	}
	return cfg, nil
}

// CallSession ties an adapter to the peer connection it creates and to
// the view showing it.
type CallSession struct {
	Adapter *call.Adapter

	cfg  *config.Config
	log  *slog.Logger
	view *ui.CallUI

	mu          sync.Mutex
	peer        *call.Peer
	connectedAt time.Time
	endedAt     time.Time
}

// NewCallSession prepares a call in room as id.
func NewCallSession(cfg *config.Config, room, id string, media call.MediaSource, log *slog.Logger) *CallSession {
	s := &CallSession{cfg: cfg, log: log}
	resolver := dns.NewResolver()

	s.Adapter = call.NewAdapter(call.Options{
		Room: room,
		ID:   id,
		Dial: func(ctx context.Context) (call.Signaler, error) {
			c, err := sigclient.Dial(ctx, cfg.SignalingURL, resolver, log)
			if err != nil {
				return nil, err
			}
			return c, nil
		},
		NewPeerConnection: s.newPeer,
		Media:             media,
		OnStateChange:     s.stateChanged,
		OnPeerConnectionState: func(st pion.PeerConnectionState) {
			if s.view != nil {
				s.view.Send(ui.CallUpdate{PeerState: st.String()})
			}
		},
		Logger: log,
	})
	return s
}

// AttachView routes call updates to view instead of plain output. It
// must be called before the adapter runs.
func (s *CallSession) AttachView(view *ui.CallUI) {
	s.view = view
}

func (s *CallSession) newPeer() (call.PeerConnection, error) {
	p, err := call.NewPeer(s.cfg, s.log)
	if err != nil {
		return nil, err
	}

	p.Control.OnHangup(s.Adapter.PeerHungUp)
	p.Control.OnOpen(s.announceMedia)
	p.Control.OnMediaState(func(m call.MediaState) {
		if s.view != nil {
			s.view.Send(ui.CallUpdate{Remote: &m})
		} else {
			ui.PrintInfof("Peer media: audio %s, video %s", onOff(m.Audio), onOff(m.Video))
		}
	})

	s.mu.Lock()
	s.peer = p
	s.mu.Unlock()
	return p, nil
}

// RelayMode describes how media was routed: "TURN" for a relay-only
// connection, "direct" otherwise, "none" when no connection was made.
func (s *CallSession) RelayMode() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch {
	case s.peer == nil:
		return "none"
	case s.peer.Policy == pion.ICETransportPolicyRelay:
		return "TURN"
	default:
		return "direct"
	}
}

func (s *CallSession) control() *call.ControlChannel {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.peer == nil {
		return nil
	}
	return s.peer.Control
}

func (s *CallSession) announceMedia() {
	if c := s.control(); c != nil {
		if err := c.SendMediaState(s.Adapter.MediaState()); err != nil {
			s.log.Debug("Announcing media state", "error", err)
		}
	}
}

// stateChanged forwards every state but closed; the final state is
// reported together with the call's outcome.
func (s *CallSession) stateChanged(st call.State) {
	s.mu.Lock()
	switch {
	case st == call.StateConnected && s.connectedAt.IsZero():
		s.connectedAt = time.Now()
	case st == call.StateClosed:
		s.endedAt = time.Now()
	}
	s.mu.Unlock()

	if st == call.StateClosed {
		return
	}
	if s.view != nil {
		s.view.SetState(st)
		return
	}
	switch st {
	case call.StateWaitingForPeer:
		ui.PrintInfo("Waiting for someone to join...")
	case call.StateNegotiating:
		ui.PrintInfo("Peer joined, connecting...")
	case call.StateConnected:
		ui.PrintSuccess("Connected")
	}
}

// Duration is how long the call was connected.
func (s *CallSession) Duration() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.connectedAt.IsZero() {
		return 0
	}
	end := s.endedAt
	if end.IsZero() {
		end = time.Now()
	}
	return end.Sub(s.connectedAt)
}

// ToggleAudio flips the microphone and tells the peer.
func (s *CallSession) ToggleAudio() bool {
	on := !s.Adapter.MediaState().Audio
	s.Adapter.SetAudioEnabled(on)
	s.announceMedia()
	return s.Adapter.MediaState().Audio
}

// ToggleVideo flips the camera and tells the peer.
func (s *CallSession) ToggleVideo() bool {
	on := !s.Adapter.MediaState().Video
	s.Adapter.SetVideoEnabled(on)
	s.announceMedia()
	return s.Adapter.MediaState().Video
}

// Hangup tells the peer and ends the call.
func (s *CallSession) Hangup() {
	if c := s.control(); c != nil {
		if err := c.SendHangup(); err != nil {
			s.log.Debug("Sending hangup", "error", err)
		}
	}
	s.Adapter.Leave()
}

func onOff(on bool) string {
	if on {
		return "on"
	}
	return "off"
}
