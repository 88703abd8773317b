package call

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/pion/webrtc/v4"
	"github.com/vmihailenco/msgpack/v5"
)

// Control message types exchanged directly between peers over the
// control data channel. The relay never sees them.
const (
	ControlMediaState = "media_state"
	ControlHangup     = "hangup"
)

const (
	controlLabel     = "control"
	controlChannelID = uint16(0)
)

// ControlMessage is one frame on the control channel.
type ControlMessage struct {
	Type    string             `msgpack:"type"`
	Payload msgpack.RawMessage `msgpack:"payload,omitempty"`
}

// MediaState tells the remote peer which local tracks are live.
type MediaState struct {
	Audio bool `msgpack:"audio"`
	Video bool `msgpack:"video"`
}

// EncodeControl builds a control frame with an optional payload.
func EncodeControl(t string, payload any) ([]byte, error) {
	msg := ControlMessage{Type: t}
	if payload != nil {
		b, err := msgpack.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("encode %s payload: %w", t, err)
		}
		msg.Payload = b
	}
	return msgpack.Marshal(msg)
}

// DecodeControl parses a control frame.
func DecodeControl(data []byte) (ControlMessage, error) {
	var msg ControlMessage
	if err := msgpack.Unmarshal(data, &msg); err != nil {
		return ControlMessage{}, fmt.Errorf("decode control message: %w", err)
	}
	return msg, nil
}

// DecodePayload decodes the message payload into v.
func (m ControlMessage) DecodePayload(v any) error {
	return msgpack.Unmarshal(m.Payload, v)
}

// ControlChannel is a pre-negotiated data channel both peers create with
// the same id, so neither side waits for the other to announce it.
type ControlChannel struct {
	dc  *webrtc.DataChannel
	log *slog.Logger

	mu           sync.Mutex
	onMediaState func(MediaState)
	onHangup     func()
}

func newControlChannel(pc *webrtc.PeerConnection, log *slog.Logger) (*ControlChannel, error) {
	negotiated := true
	ordered := true
	id := controlChannelID
	dc, err := pc.CreateDataChannel(controlLabel, &webrtc.DataChannelInit{
		Negotiated: &negotiated,
		ID:         &id,
		Ordered:    &ordered,
	})
	if err != nil {
		return nil, NewError("create control channel", err)
	}

	c := &ControlChannel{dc: dc, log: log}
	dc.OnMessage(func(msg webrtc.DataChannelMessage) {
		c.dispatch(msg.Data)
	})
	return c, nil
}

// OnMediaState registers the handler for remote media state changes.
func (c *ControlChannel) OnMediaState(f func(MediaState)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onMediaState = f
}

// OnHangup registers the handler for a remote hangup.
func (c *ControlChannel) OnHangup(f func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onHangup = f
}

// OnOpen registers a handler for when the channel becomes usable.
func (c *ControlChannel) OnOpen(f func()) {
	c.dc.OnOpen(f)
}

func (c *ControlChannel) dispatch(data []byte) {
	msg, err := DecodeControl(data)
	if err != nil {
		c.log.Warn("Dropping control message", "error", err)
		return
	}

	c.mu.Lock()
	onMediaState, onHangup := c.onMediaState, c.onHangup
	c.mu.Unlock()

	switch msg.Type {
	case ControlMediaState:
		var state MediaState
		if err := msg.DecodePayload(&state); err != nil {
			c.log.Warn("Bad media state", "error", err)
			return
		}
		if onMediaState != nil {
			onMediaState(state)
		}
	case ControlHangup:
		if onHangup != nil {
			onHangup()
		}
	default:
		c.log.Debug("Unknown control message", "type", msg.Type)
	}
}

// SendMediaState announces the local media state. It is a no-op until
// the channel is open.
func (c *ControlChannel) SendMediaState(state MediaState) error {
	return c.send(ControlMediaState, state)
}

// SendHangup tells the remote peer the call is over.
func (c *ControlChannel) SendHangup() error {
	return c.send(ControlHangup, nil)
}

func (c *ControlChannel) send(t string, payload any) error {
	if c.dc.ReadyState() != webrtc.DataChannelStateOpen {
		return nil
	}
	data, err := EncodeControl(t, payload)
	if err != nil {
		return err
	}
	return c.dc.Send(data)
}
