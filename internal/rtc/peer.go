package rtc

import (
	"fmt"

	"github.com/mindfull/backend/internal/config"
	"github.com/pion/webrtc/v4"
)

// PeerConnection is the subset of the underlying WebRTC peer connection the
// call client drives. Keeping it narrow lets the state machine run against a
// fake in tests, with no networking.
type PeerConnection interface {
	CreateOffer() (webrtc.SessionDescription, error)
	CreateAnswer(offer webrtc.SessionDescription) (webrtc.SessionDescription, error)
	SetRemoteDescription(desc webrtc.SessionDescription) error
	AddICECandidate(candidate webrtc.ICECandidateInit) error
	AddTrack(track webrtc.TrackLocal) error
	OnICECandidate(fn func(webrtc.ICECandidateInit))
	OnTrack(fn func(*webrtc.TrackRemote))
	OnConnectionStateChange(fn func(webrtc.PeerConnectionState))
	Close() error
}

// PeerFactory creates a fresh peer connection for one call attempt
type PeerFactory func() (PeerConnection, error)

// NewPeerFactory builds a factory from the configured ICE servers
func NewPeerFactory(cfg *config.WebRTCConfig) PeerFactory {
	return func() (PeerConnection, error) {
		iceServers := []webrtc.ICEServer{{URLs: []string{cfg.STUNServer}}}

		if cfg.TURNServer != "" {
			iceServers = append(iceServers, webrtc.ICEServer{
				URLs:       []string{cfg.TURNServer},
				Username:   cfg.TURNUser,
				Credential: cfg.TURNPass,
			})
		}

		pc, err := webrtc.NewPeerConnection(webrtc.Configuration{
			ICEServers: iceServers,
		})
		if err != nil {
			return nil, fmt.Errorf("create peer connection: %w", err)
		}

		return &pionPeer{pc: pc}, nil
	}
}

// pionPeer adapts *webrtc.PeerConnection to the PeerConnection interface
type pionPeer struct {
	pc *webrtc.PeerConnection
}

func (p *pionPeer) CreateOffer() (webrtc.SessionDescription, error) {
	offer, err := p.pc.CreateOffer(nil)
	if err != nil {
		return webrtc.SessionDescription{}, fmt.Errorf("create offer: %w", err)
	}
	if err := p.pc.SetLocalDescription(offer); err != nil {
		return webrtc.SessionDescription{}, fmt.Errorf("set local description: %w", err)
	}
	return *p.pc.LocalDescription(), nil
}

func (p *pionPeer) CreateAnswer(offer webrtc.SessionDescription) (webrtc.SessionDescription, error) {
	if err := p.pc.SetRemoteDescription(offer); err != nil {
		return webrtc.SessionDescription{}, fmt.Errorf("set remote description: %w", err)
	}
	answer, err := p.pc.CreateAnswer(nil)
	if err != nil {
		return webrtc.SessionDescription{}, fmt.Errorf("create answer: %w", err)
	}
	if err := p.pc.SetLocalDescription(answer); err != nil {
		return webrtc.SessionDescription{}, fmt.Errorf("set local description: %w", err)
	}
	return *p.pc.LocalDescription(), nil
}

func (p *pionPeer) SetRemoteDescription(desc webrtc.SessionDescription) error {
	return p.pc.SetRemoteDescription(desc)
}

func (p *pionPeer) AddICECandidate(candidate webrtc.ICECandidateInit) error {
	return p.pc.AddICECandidate(candidate)
}

func (p *pionPeer) AddTrack(track webrtc.TrackLocal) error {
	_, err := p.pc.AddTrack(track)
	return err
}

func (p *pionPeer) OnICECandidate(fn func(webrtc.ICECandidateInit)) {
	p.pc.OnICECandidate(func(c *webrtc.ICECandidate) {
		// nil marks the end of candidate gathering
		if c == nil {
			return
		}
		fn(c.ToJSON())
	})
}

func (p *pionPeer) OnTrack(fn func(*webrtc.TrackRemote)) {
	p.pc.OnTrack(func(track *webrtc.TrackRemote, _ *webrtc.RTPReceiver) {
		fn(track)
	})
}

func (p *pionPeer) OnConnectionStateChange(fn func(webrtc.PeerConnectionState)) {
	p.pc.OnConnectionStateChange(fn)
}

func (p *pionPeer) Close() error {
	return p.pc.Close()
}
