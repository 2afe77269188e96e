package rtc

import (
	"encoding/json"
	"fmt"
	"log"
	"sync"

	"github.com/google/uuid"
	"github.com/mindfull/backend/internal/signaling"
	"github.com/pion/webrtc/v4"
)

// Config identifies the local participant and the room to join
type Config struct {
	UserID uuid.UUID
	Role   string
	Room   string
}

// Client drives one side of a two-party call: it acquires local media, joins
// the signaling room, exchanges session descriptions and ICE candidates with
// the remote peer, and reports connection status.
//
// One Client owns one LocalMedia and one PeerConnection for its lifetime.
// There is no reconnection: once a terminal status is reached the only
// recovery is a fresh Client with a fresh join.
type Client struct {
	cfg     Config
	channel Channel
	newPeer PeerFactory
	capture CaptureFunc

	mu        sync.Mutex
	status    Status
	pc        PeerConnection
	media     LocalMedia
	remoteID  uuid.UUID
	remoteSet bool
	// Candidates can arrive before the remote description; they are held
	// here and applied once it is set.
	pending []webrtc.ICECandidateInit
	closed  bool

	audioEnabled bool
	videoEnabled bool

	onStatus func(Status)
	onTrack  func(*webrtc.TrackRemote)

	done chan struct{}
}

// NewClient creates a call client. Start begins the session.
func NewClient(cfg Config, channel Channel, newPeer PeerFactory, capture CaptureFunc) *Client {
	return &Client{
		cfg:          cfg,
		channel:      channel,
		newPeer:      newPeer,
		capture:      capture,
		status:       StatusInitializing,
		audioEnabled: true,
		videoEnabled: true,
		done:         make(chan struct{}),
	}
}

// OnStatus registers a status callback. Set before Start.
func (c *Client) OnStatus(fn func(Status)) { c.onStatus = fn }

// OnTrack registers a remote-track callback. Set before Start.
func (c *Client) OnTrack(fn func(*webrtc.TrackRemote)) { c.onTrack = fn }

// Status returns the current connection status
func (c *Client) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// Done is closed once the client has fully torn down
func (c *Client) Done() <-chan struct{} { return c.done }

// Start acquires media, creates the peer connection and joins the room.
// A capture failure is terminal: the client moves to StatusError and makes
// no retry.
func (c *Client) Start() error {
	c.setStatus(StatusInitializing)

	media, err := c.capture()
	if err != nil {
		c.setStatus(StatusError)
		return fmt.Errorf("acquire local media: %w", err)
	}

	pc, err := c.newPeer()
	if err != nil {
		media.Close()
		c.setStatus(StatusError)
		return fmt.Errorf("create peer connection: %w", err)
	}

	if err := pc.AddTrack(media.AudioTrack()); err == nil {
		err = pc.AddTrack(media.VideoTrack())
	}
	if err != nil {
		media.Close()
		pc.Close()
		c.setStatus(StatusError)
		return fmt.Errorf("add local tracks: %w", err)
	}

	c.mu.Lock()
	c.media = media
	c.pc = pc
	c.mu.Unlock()

	// Locally gathered candidates are forwarded the moment the platform
	// reports them, in parallel with the offer/answer exchange.
	pc.OnICECandidate(c.sendCandidate)
	pc.OnConnectionStateChange(c.handleConnectionState)
	pc.OnTrack(func(track *webrtc.TrackRemote) {
		if c.onTrack != nil {
			c.onTrack(track)
		}
	})

	c.setStatus(StatusWaiting)

	join := signaling.NewMessage(signaling.MessageTypeJoinRoom, c.cfg.Room, signaling.JoinPayload{
		UserType: c.cfg.Role,
	})
	join.From = c.cfg.UserID
	if err := c.channel.Send(join); err != nil {
		c.teardown(StatusError)
		return fmt.Errorf("join room: %w", err)
	}

	go c.readLoop()

	return nil
}

// Close tears the session down. It is safe to call from any state, any
// number of times.
func (c *Client) Close() error {
	c.teardown(StatusClosed)
	return nil
}

// ToggleAudio flips the local audio enabled flag and returns the new value.
// This is a local-only mute applied to the captured track: nothing is
// signaled and no renegotiation runs.
func (c *Client) ToggleAudio() bool {
	c.mu.Lock()
	c.audioEnabled = !c.audioEnabled
	enabled := c.audioEnabled
	media := c.media
	c.mu.Unlock()

	if media != nil {
		media.SetAudioEnabled(enabled)
	}
	return enabled
}

// ToggleVideo flips the local video enabled flag and returns the new value
func (c *Client) ToggleVideo() bool {
	c.mu.Lock()
	c.videoEnabled = !c.videoEnabled
	enabled := c.videoEnabled
	media := c.media
	c.mu.Unlock()

	if media != nil {
		media.SetVideoEnabled(enabled)
	}
	return enabled
}

// AudioEnabled reports whether local audio is enabled
func (c *Client) AudioEnabled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.audioEnabled
}

// VideoEnabled reports whether local video is enabled
func (c *Client) VideoEnabled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.videoEnabled
}

// readLoop consumes signaling messages until the channel closes
func (c *Client) readLoop() {
	for msg := range c.channel.Incoming() {
		c.handleMessage(msg)
	}

	// Signaling dropped out from under us; without it the session cannot
	// be renegotiated, so tear down.
	c.teardown(StatusDisconnected)
}

func (c *Client) handleMessage(msg *signaling.Message) {
	switch msg.Type {
	case signaling.MessageTypeUserJoined:
		c.handleUserJoined(msg)
	case signaling.MessageTypeOffer:
		c.handleOffer(msg)
	case signaling.MessageTypeAnswer:
		c.handleAnswer(msg)
	case signaling.MessageTypeICECandidate:
		c.handleCandidate(msg)
	case signaling.MessageTypeUserLeft:
		c.handleUserLeft(msg)
	case signaling.MessageTypeRoomInfo:
		// informational only
	default:
		log.Printf("RTC: Ignoring message type %q", msg.Type)
	}
}

// handleUserJoined runs the offer tie-break: the peer that was already in
// the room offers to the newcomer, and the newcomer only ever answers.
// Receiving user-joined proves this side was present first, so the two
// sides never race to create offers.
func (c *Client) handleUserJoined(msg *signaling.Message) {
	var payload signaling.UserJoinedPayload
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		return
	}
	if payload.UserID == c.cfg.UserID {
		return
	}

	c.mu.Lock()
	pc := c.pc
	// Sessions are two-party: once a remote peer is recorded, later joins
	// must not disturb the live connection.
	if c.closed || pc == nil || c.remoteID != uuid.Nil {
		c.mu.Unlock()
		return
	}
	c.remoteID = payload.UserID
	c.mu.Unlock()

	offer, err := pc.CreateOffer()
	if err != nil {
		log.Printf("RTC: Failed to create offer: %v", err)
		return
	}

	out := signaling.NewMessage(signaling.MessageTypeOffer, c.cfg.Room, offer)
	out.From = c.cfg.UserID
	out.To = payload.UserID
	if err := c.channel.Send(out); err != nil {
		log.Printf("RTC: Failed to send offer: %v", err)
		return
	}

	c.setStatus(StatusConnecting)
}

// handleOffer answers an incoming offer (the newcomer side of the tie-break)
func (c *Client) handleOffer(msg *signaling.Message) {
	var offer webrtc.SessionDescription
	if err := json.Unmarshal(msg.Payload, &offer); err != nil {
		return
	}

	c.mu.Lock()
	pc := c.pc
	if c.closed || pc == nil || (c.remoteID != uuid.Nil && c.remoteID != msg.From) {
		c.mu.Unlock()
		return
	}
	c.remoteID = msg.From
	c.mu.Unlock()

	answer, err := pc.CreateAnswer(offer)
	if err != nil {
		log.Printf("RTC: Failed to answer offer: %v", err)
		return
	}

	c.flushPendingCandidates(pc)

	out := signaling.NewMessage(signaling.MessageTypeAnswer, c.cfg.Room, answer)
	out.From = c.cfg.UserID
	out.To = msg.From
	if err := c.channel.Send(out); err != nil {
		log.Printf("RTC: Failed to send answer: %v", err)
		return
	}

	c.setStatus(StatusConnecting)
}

// handleAnswer applies the answer from the peer this side offered to.
// Answers from anyone else are ignored.
func (c *Client) handleAnswer(msg *signaling.Message) {
	var answer webrtc.SessionDescription
	if err := json.Unmarshal(msg.Payload, &answer); err != nil {
		return
	}

	c.mu.Lock()
	pc := c.pc
	if c.closed || pc == nil || msg.From != c.remoteID {
		c.mu.Unlock()
		return
	}
	c.mu.Unlock()

	if err := pc.SetRemoteDescription(answer); err != nil {
		log.Printf("RTC: Failed to apply answer: %v", err)
		return
	}

	c.flushPendingCandidates(pc)
}

// handleCandidate applies a remote candidate, queueing it if the remote
// description has not been set yet
func (c *Client) handleCandidate(msg *signaling.Message) {
	var candidate webrtc.ICECandidateInit
	if err := json.Unmarshal(msg.Payload, &candidate); err != nil {
		return
	}

	c.mu.Lock()
	pc := c.pc
	if c.closed || pc == nil || (c.remoteID != uuid.Nil && c.remoteID != msg.From) {
		c.mu.Unlock()
		return
	}
	if !c.remoteSet {
		c.pending = append(c.pending, candidate)
		c.mu.Unlock()
		return
	}
	c.mu.Unlock()

	if err := pc.AddICECandidate(candidate); err != nil {
		log.Printf("RTC: Failed to add ICE candidate: %v", err)
	}
}

// flushPendingCandidates marks the remote description as applied and drains
// any candidates that arrived before it
func (c *Client) flushPendingCandidates(pc PeerConnection) {
	c.mu.Lock()
	c.remoteSet = true
	pending := c.pending
	c.pending = nil
	c.mu.Unlock()

	for _, candidate := range pending {
		if err := pc.AddICECandidate(candidate); err != nil {
			log.Printf("RTC: Failed to add queued ICE candidate: %v", err)
		}
	}
}

// handleUserLeft tears down when the remote peer leaves
func (c *Client) handleUserLeft(msg *signaling.Message) {
	var payload signaling.UserLeftPayload
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		return
	}
	if payload.UserID == c.cfg.UserID {
		return
	}

	c.mu.Lock()
	remoteID := c.remoteID
	c.mu.Unlock()

	if remoteID == uuid.Nil || payload.UserID == remoteID {
		c.teardown(StatusDisconnected)
	}
}

// sendCandidate forwards a locally gathered candidate to the remote peer
func (c *Client) sendCandidate(candidate webrtc.ICECandidateInit) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.mu.Unlock()

	out := signaling.NewMessage(signaling.MessageTypeICECandidate, c.cfg.Room, candidate)
	out.From = c.cfg.UserID
	if err := c.channel.Send(out); err != nil {
		log.Printf("RTC: Failed to send ICE candidate: %v", err)
	}
}

// handleConnectionState maps the platform's connection state to a status.
// failed and closed are terminal; the user leaves and rejoins to recover.
func (c *Client) handleConnectionState(state webrtc.PeerConnectionState) {
	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	if closed {
		// teardown already assigned the final status
		return
	}

	switch state {
	case webrtc.PeerConnectionStateConnected:
		c.setStatus(StatusConnected)
	case webrtc.PeerConnectionStateDisconnected:
		c.setStatus(StatusDisconnected)
	case webrtc.PeerConnectionStateFailed:
		c.setStatus(StatusFailed)
	case webrtc.PeerConnectionStateClosed:
		c.setStatus(StatusClosed)
	}
}

// teardown releases everything the client owns: local media tracks first
// (so device indicators turn off), then the peer connection, then room
// membership. Safe from any state and idempotent.
func (c *Client) teardown(final Status) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	media := c.media
	pc := c.pc
	c.mu.Unlock()

	if media != nil {
		media.Close()
	}
	if pc != nil {
		pc.Close()
	}

	leave := signaling.NewMessage(signaling.MessageTypeLeaveRoom, c.cfg.Room, nil)
	leave.From = c.cfg.UserID
	// Best effort: the channel may already be gone
	_ = c.channel.Send(leave)
	c.channel.Close()

	c.setStatus(final)
	close(c.done)
}

func (c *Client) setStatus(s Status) {
	c.mu.Lock()
	if c.status == s {
		c.mu.Unlock()
		return
	}
	c.status = s
	fn := c.onStatus
	c.mu.Unlock()

	if fn != nil {
		fn(s)
	}
}
