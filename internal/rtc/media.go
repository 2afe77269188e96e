package rtc

import (
	"sync"

	"github.com/pion/webrtc/v4"
)

// LocalMedia supplies the local audio and video tracks for a call and owns
// the capture resources behind them. Exactly one client instance owns a
// LocalMedia at a time; Close must release the underlying devices on every
// exit path so capture indicators turn off.
//
// SetAudioEnabled and SetVideoEnabled implement mute and camera-off: a
// disabled track stops emitting samples while staying negotiated, so
// re-enabling needs no renegotiation.
type LocalMedia interface {
	AudioTrack() webrtc.TrackLocal
	VideoTrack() webrtc.TrackLocal
	SetAudioEnabled(enabled bool)
	SetVideoEnabled(enabled bool)
	Close() error
}

// CaptureFunc acquires local media. Acquisition can be delayed arbitrarily by
// permission prompts and can fail outright (denied, no device); failure is
// terminal for the session attempt.
type CaptureFunc func() (LocalMedia, error)

// staticMedia backs a call with static sample tracks. The headless client
// negotiates a real peer connection without feeding capture frames into it;
// the enabled flags carry the mute and camera state for the static feed.
type staticMedia struct {
	audio *webrtc.TrackLocalStaticSample
	video *webrtc.TrackLocalStaticSample

	mu           sync.Mutex
	audioEnabled bool
	videoEnabled bool
	closed       bool
}

// NewStaticMedia creates an opus/VP8 track pair for headless calls
func NewStaticMedia() (LocalMedia, error) {
	audio, err := webrtc.NewTrackLocalStaticSample(
		webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeOpus},
		"audio", "mindfull-audio",
	)
	if err != nil {
		return nil, err
	}

	video, err := webrtc.NewTrackLocalStaticSample(
		webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeVP8},
		"video", "mindfull-video",
	)
	if err != nil {
		return nil, err
	}

	return &staticMedia{audio: audio, video: video, audioEnabled: true, videoEnabled: true}, nil
}

func (m *staticMedia) AudioTrack() webrtc.TrackLocal { return m.audio }

func (m *staticMedia) VideoTrack() webrtc.TrackLocal { return m.video }

func (m *staticMedia) SetAudioEnabled(enabled bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.audioEnabled = enabled
}

func (m *staticMedia) SetVideoEnabled(enabled bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.videoEnabled = enabled
}

func (m *staticMedia) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}
