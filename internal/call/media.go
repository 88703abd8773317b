package call

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pion/webrtc/v4"
	"github.com/pion/webrtc/v4/pkg/media"
)

// MediaSource captures local audio and video. Enabling or disabling a
// kind is local state and never reaches the relay.
type MediaSource interface {
	// Acquire opens the capture devices and returns their tracks. It
	// fails with ErrMediaDenied when no media can be captured.
	Acquire(ctx context.Context) ([]webrtc.TrackLocal, error)

	SetEnabled(kind webrtc.RTPCodecType, enabled bool)
	Enabled(kind webrtc.RTPCodecType) bool

	// Stop releases every track. It is safe to call more than once and
	// before Acquire.
	Stop()
}

// opusSilence is a 20ms Opus frame of silence.
var opusSilence = []byte{0xf8, 0xff, 0xfe}

const audioFrame = 20 * time.Millisecond

// SyntheticSource produces an Opus audio track of silence and a VP8 video
// track, for endpoints without capture devices.
type SyntheticSource struct {
	audio, video bool

	audioOn atomic.Bool
	videoOn atomic.Bool

	mu     sync.Mutex
	tracks []webrtc.TrackLocal
	stop   chan struct{}
	wg     sync.WaitGroup
}

// NewSyntheticSource returns a source offering the requested kinds.
func NewSyntheticSource(audio, video bool) *SyntheticSource {
	s := &SyntheticSource{audio: audio, video: video}
	s.audioOn.Store(audio)
	s.videoOn.Store(video)
	return s
}

func (s *SyntheticSource) Acquire(ctx context.Context) ([]webrtc.TrackLocal, error) {
	if !s.audio && !s.video {
		return nil, WrapError("acquire media", ErrMediaDenied, "no audio or video requested")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stop != nil {
		return s.tracks, nil
	}

	var tracks []webrtc.TrackLocal
	if s.audio {
		audio, err := webrtc.NewTrackLocalStaticSample(
			webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeOpus, ClockRate: 48000, Channels: 2},
			"audio", "assigncall")
		if err != nil {
			return nil, WrapError("acquire media", ErrMediaDenied, fmt.Sprintf("audio track: %v", err))
		}
		tracks = append(tracks, audio)
	}
	if s.video {
		video, err := webrtc.NewTrackLocalStaticSample(
			webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeVP8, ClockRate: 90000},
			"video", "assigncall")
		if err != nil {
			return nil, WrapError("acquire media", ErrMediaDenied, fmt.Sprintf("video track: %v", err))
		}
		tracks = append(tracks, video)
	}

	s.tracks = tracks
	s.stop = make(chan struct{})
	if s.audio {
		s.wg.Add(1)
		go s.pumpAudio(tracks[0].(*webrtc.TrackLocalStaticSample), s.stop)
	}
	return tracks, nil
}

// pumpAudio writes silence frames while audio is enabled.
func (s *SyntheticSource) pumpAudio(track *webrtc.TrackLocalStaticSample, stop <-chan struct{}) {
	defer s.wg.Done()
	ticker := time.NewTicker(audioFrame)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if !s.audioOn.Load() {
				continue
			}
			// Fails harmlessly until the track is bound to a sender.
			_ = track.WriteSample(media.Sample{Data: opusSilence, Duration: audioFrame})
		}
	}
}

func (s *SyntheticSource) SetEnabled(kind webrtc.RTPCodecType, enabled bool) {
	switch kind {
	case webrtc.RTPCodecTypeAudio:
		s.audioOn.Store(enabled && s.audio)
	case webrtc.RTPCodecTypeVideo:
		s.videoOn.Store(enabled && s.video)
	}
}

func (s *SyntheticSource) Enabled(kind webrtc.RTPCodecType) bool {
	switch kind {
	case webrtc.RTPCodecTypeAudio:
		return s.audioOn.Load()
	case webrtc.RTPCodecTypeVideo:
		return s.videoOn.Load()
	}
	return false
}

func (s *SyntheticSource) Stop() {
	s.mu.Lock()
	stop := s.stop
	s.stop = nil
	s.tracks = nil
	s.mu.Unlock()

	if stop != nil {
		close(stop)
		s.wg.Wait()
	}
}
