package rtc

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/mindfull/backend/internal/signaling"
	"github.com/pion/webrtc/v4"
)

type fakeMedia struct {
	mu           sync.Mutex
	audioEnabled bool
	videoEnabled bool
	closed       bool
}

func newFakeMedia() *fakeMedia {
	return &fakeMedia{audioEnabled: true, videoEnabled: true}
}

func (m *fakeMedia) AudioTrack() webrtc.TrackLocal { return nil }
func (m *fakeMedia) VideoTrack() webrtc.TrackLocal { return nil }
func (m *fakeMedia) SetAudioEnabled(enabled bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.audioEnabled = enabled
}
func (m *fakeMedia) SetVideoEnabled(enabled bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.videoEnabled = enabled
}
func (m *fakeMedia) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}
func (m *fakeMedia) state() (audio, video bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.audioEnabled, m.videoEnabled
}
func (m *fakeMedia) isClosed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

type fakePeer struct {
	mu         sync.Mutex
	offers     int
	answers    int
	remoteSets int
	candidates []webrtc.ICECandidateInit
	tracks     int
	closed     bool

	onCandidate func(webrtc.ICECandidateInit)
	onState     func(webrtc.PeerConnectionState)
	onTrack     func(*webrtc.TrackRemote)
}

func (p *fakePeer) CreateOffer() (webrtc.SessionDescription, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.offers++
	return webrtc.SessionDescription{Type: webrtc.SDPTypeOffer, SDP: "v=0 offer"}, nil
}

func (p *fakePeer) CreateAnswer(offer webrtc.SessionDescription) (webrtc.SessionDescription, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.answers++
	p.remoteSets++
	return webrtc.SessionDescription{Type: webrtc.SDPTypeAnswer, SDP: "v=0 answer"}, nil
}

func (p *fakePeer) SetRemoteDescription(desc webrtc.SessionDescription) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.remoteSets++
	return nil
}

func (p *fakePeer) AddICECandidate(candidate webrtc.ICECandidateInit) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.candidates = append(p.candidates, candidate)
	return nil
}

func (p *fakePeer) AddTrack(track webrtc.TrackLocal) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.tracks++
	return nil
}

func (p *fakePeer) OnICECandidate(fn func(webrtc.ICECandidateInit)) { p.onCandidate = fn }
func (p *fakePeer) OnTrack(fn func(*webrtc.TrackRemote))            { p.onTrack = fn }
func (p *fakePeer) OnConnectionStateChange(fn func(webrtc.PeerConnectionState)) {
	p.onState = fn
}

func (p *fakePeer) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

func (p *fakePeer) snapshot() (offers, answers, candidates int, closed bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.offers, p.answers, len(p.candidates), p.closed
}

func (p *fakePeer) counts() (offers, answers, candidates, remoteSets int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.offers, p.answers, len(p.candidates), p.remoteSets
}

type fakeChannel struct {
	mu       sync.Mutex
	sent     chan *signaling.Message
	incoming chan *signaling.Message
	closed   bool
}

func newFakeChannel() *fakeChannel {
	return &fakeChannel{
		sent:     make(chan *signaling.Message, 32),
		incoming: make(chan *signaling.Message, 32),
	}
}

func (c *fakeChannel) Send(msg *signaling.Message) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return errors.New("channel closed")
	}
	c.mu.Unlock()
	c.sent <- msg
	return nil
}

func (c *fakeChannel) Incoming() <-chan *signaling.Message { return c.incoming }

func (c *fakeChannel) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.incoming)
	}
	return nil
}

// nextSent waits for the next outbound message, failing on timeout
func (c *fakeChannel) nextSent(t *testing.T) *signaling.Message {
	t.Helper()
	select {
	case msg := <-c.sent:
		return msg
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for an outbound message")
		return nil
	}
}

func (c *fakeChannel) assertNothingSent(t *testing.T) {
	t.Helper()
	select {
	case msg := <-c.sent:
		t.Fatalf("unexpected outbound message: %s", msg.Type)
	case <-time.After(50 * time.Millisecond):
	}
}

type harness struct {
	client  *Client
	channel *fakeChannel
	peer    *fakePeer
	media   *fakeMedia

	mu       sync.Mutex
	statuses []Status
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		channel: newFakeChannel(),
		peer:    &fakePeer{},
		media:   newFakeMedia(),
	}
	h.client = NewClient(
		Config{UserID: uuid.New(), Role: "counsellor", Room: "sess-42"},
		h.channel,
		func() (PeerConnection, error) { return h.peer, nil },
		func() (LocalMedia, error) { return h.media, nil },
	)
	h.client.OnStatus(func(s Status) {
		h.mu.Lock()
		h.statuses = append(h.statuses, s)
		h.mu.Unlock()
	})
	return h
}

func (h *harness) start(t *testing.T) {
	t.Helper()
	if err := h.client.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if msg := h.channel.nextSent(t); msg.Type != signaling.MessageTypeJoinRoom {
		t.Fatalf("expected join-room first, got %s", msg.Type)
	}
}

func (h *harness) deliver(msg *signaling.Message) {
	h.channel.incoming <- msg
}

func (h *harness) seenStatuses() []Status {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]Status, len(h.statuses))
	copy(out, h.statuses)
	return out
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.After(time.Second)
	for {
		if cond() {
			return
		}
		select {
		case <-deadline:
			t.Fatalf("timed out waiting for %s", what)
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestClientStartJoinsRoom(t *testing.T) {
	h := newHarness(t)

	if err := h.client.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer h.client.Close()

	msg := h.channel.nextSent(t)
	if msg.Type != signaling.MessageTypeJoinRoom || msg.Room != "sess-42" {
		t.Fatalf("expected join-room for sess-42, got %s for %q", msg.Type, msg.Room)
	}
	var payload signaling.JoinPayload
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		t.Fatalf("bad join payload: %v", err)
	}
	if payload.UserType != "counsellor" {
		t.Fatalf("expected role in join payload, got %q", payload.UserType)
	}

	if got := h.client.Status(); got != StatusWaiting {
		t.Fatalf("expected waiting after start, got %s", got)
	}
}

func TestClientCaptureFailureIsTerminal(t *testing.T) {
	channel := newFakeChannel()
	client := NewClient(
		Config{UserID: uuid.New(), Role: "student", Room: "sess-1"},
		channel,
		func() (PeerConnection, error) { return &fakePeer{}, nil },
		func() (LocalMedia, error) { return nil, errors.New("no camera") },
	)

	if err := client.Start(); err == nil {
		t.Fatal("expected Start to fail when capture fails")
	}
	if got := client.Status(); got != StatusError {
		t.Fatalf("expected error status, got %s", got)
	}
	channel.assertNothingSent(t)
}

// TestClientExistingPeerOffers covers the side that was already in the room:
// user-joined arrives, so this side creates the offer, addressed to the
// newcomer.
func TestClientExistingPeerOffers(t *testing.T) {
	h := newHarness(t)
	h.start(t)
	defer h.client.Close()

	newcomer := uuid.New()
	h.deliver(signaling.NewMessage(signaling.MessageTypeUserJoined, "sess-42",
		signaling.UserJoinedPayload{UserID: newcomer, UserType: "student", TotalUsers: 2}))

	offer := h.channel.nextSent(t)
	if offer.Type != signaling.MessageTypeOffer {
		t.Fatalf("expected offer, got %s", offer.Type)
	}
	if offer.To != newcomer {
		t.Fatalf("offer should target the newcomer %s, got %s", newcomer, offer.To)
	}

	offers, answers, _, _ := h.peer.snapshot()
	if offers != 1 || answers != 0 {
		t.Fatalf("expected exactly one offer and no answers, got %d/%d", offers, answers)
	}
	if got := h.client.Status(); got != StatusConnecting {
		t.Fatalf("expected connecting after offering, got %s", got)
	}
}

// TestClientNewcomerAnswers covers the other side of the tie-break: the
// newcomer never offers, it answers the offer addressed to it.
func TestClientNewcomerAnswers(t *testing.T) {
	h := newHarness(t)
	h.start(t)
	defer h.client.Close()

	remote := uuid.New()
	offer := signaling.NewMessage(signaling.MessageTypeOffer, "sess-42",
		webrtc.SessionDescription{Type: webrtc.SDPTypeOffer, SDP: "v=0 remote"})
	offer.From = remote
	offer.To = h.client.cfg.UserID
	h.deliver(offer)

	answer := h.channel.nextSent(t)
	if answer.Type != signaling.MessageTypeAnswer {
		t.Fatalf("expected answer, got %s", answer.Type)
	}
	if answer.To != remote {
		t.Fatalf("answer should target the offerer %s, got %s", remote, answer.To)
	}

	offers, answers, _, _ := h.peer.snapshot()
	if offers != 0 || answers != 1 {
		t.Fatalf("newcomer must answer, not offer, got %d offers / %d answers", offers, answers)
	}
}

func TestClientIgnoresOwnJoinEcho(t *testing.T) {
	h := newHarness(t)
	h.start(t)
	defer h.client.Close()

	h.deliver(signaling.NewMessage(signaling.MessageTypeUserJoined, "sess-42",
		signaling.UserJoinedPayload{UserID: h.client.cfg.UserID, UserType: "counsellor", TotalUsers: 1}))

	h.channel.assertNothingSent(t)
	offers, _, _, _ := h.peer.snapshot()
	if offers != 0 {
		t.Fatalf("a client must not offer to itself, got %d offers", offers)
	}
}

// TestClientQueuesEarlyCandidates verifies candidates arriving before the
// remote description are held back and applied after it is set.
func TestClientQueuesEarlyCandidates(t *testing.T) {
	h := newHarness(t)
	h.start(t)
	defer h.client.Close()

	remote := uuid.New()
	early := signaling.NewMessage(signaling.MessageTypeICECandidate, "sess-42",
		webrtc.ICECandidateInit{Candidate: "candidate:early"})
	early.From = remote
	h.deliver(early)

	// Give the read loop a moment, then confirm nothing was applied yet
	time.Sleep(20 * time.Millisecond)
	if _, _, applied, _ := h.peer.snapshot(); applied != 0 {
		t.Fatalf("candidate applied before remote description, got %d", applied)
	}

	offer := signaling.NewMessage(signaling.MessageTypeOffer, "sess-42",
		webrtc.SessionDescription{Type: webrtc.SDPTypeOffer, SDP: "v=0 remote"})
	offer.From = remote
	h.deliver(offer)
	h.channel.nextSent(t) // the answer

	waitFor(t, "queued candidate to be applied", func() bool {
		_, _, applied, _ := h.peer.snapshot()
		return applied == 1
	})

	// Later candidates apply immediately
	late := signaling.NewMessage(signaling.MessageTypeICECandidate, "sess-42",
		webrtc.ICECandidateInit{Candidate: "candidate:late"})
	late.From = remote
	h.deliver(late)

	waitFor(t, "late candidate to be applied", func() bool {
		_, _, applied, _ := h.peer.snapshot()
		return applied == 2
	})
}

func TestClientForwardsLocalCandidates(t *testing.T) {
	h := newHarness(t)
	h.start(t)
	defer h.client.Close()

	h.peer.onCandidate(webrtc.ICECandidateInit{Candidate: "candidate:local"})

	msg := h.channel.nextSent(t)
	if msg.Type != signaling.MessageTypeICECandidate {
		t.Fatalf("expected ice-candidate, got %s", msg.Type)
	}
	var candidate webrtc.ICECandidateInit
	if err := json.Unmarshal(msg.Payload, &candidate); err != nil {
		t.Fatalf("bad candidate payload: %v", err)
	}
	if candidate.Candidate != "candidate:local" {
		t.Fatalf("wrong candidate relayed: %q", candidate.Candidate)
	}
}

func TestClientConnectionStateDrivesStatus(t *testing.T) {
	h := newHarness(t)
	h.start(t)
	defer h.client.Close()

	h.peer.onState(webrtc.PeerConnectionStateConnected)
	if got := h.client.Status(); got != StatusConnected {
		t.Fatalf("expected connected, got %s", got)
	}

	h.peer.onState(webrtc.PeerConnectionStateFailed)
	if got := h.client.Status(); got != StatusFailed {
		t.Fatalf("expected failed, got %s", got)
	}
}

func TestClientRemoteLeaveTearsDown(t *testing.T) {
	h := newHarness(t)
	h.start(t)

	remote := uuid.New()
	h.deliver(signaling.NewMessage(signaling.MessageTypeUserJoined, "sess-42",
		signaling.UserJoinedPayload{UserID: remote, UserType: "student", TotalUsers: 2}))
	h.channel.nextSent(t) // the offer

	h.deliver(signaling.NewMessage(signaling.MessageTypeUserLeft, "sess-42",
		signaling.UserLeftPayload{UserID: remote, TotalUsers: 1}))

	select {
	case <-h.client.Done():
	case <-time.After(time.Second):
		t.Fatal("client did not tear down after remote left")
	}

	if got := h.client.Status(); got != StatusDisconnected {
		t.Fatalf("expected disconnected, got %s", got)
	}
	if !h.media.isClosed() {
		t.Fatal("local media must be released on teardown")
	}
	if _, _, _, closed := h.peer.snapshot(); !closed {
		t.Fatal("peer connection must be closed on teardown")
	}
}

func TestClientCloseReleasesEverything(t *testing.T) {
	h := newHarness(t)
	h.start(t)

	h.client.Close()

	select {
	case <-h.client.Done():
	case <-time.After(time.Second):
		t.Fatal("Close did not complete teardown")
	}

	if got := h.client.Status(); got != StatusClosed {
		t.Fatalf("expected closed, got %s", got)
	}
	if !h.media.isClosed() {
		t.Fatal("local media must be released on Close")
	}
	if _, _, _, closed := h.peer.snapshot(); !closed {
		t.Fatal("peer connection must be closed on Close")
	}

	// The leave-room notice went out before the channel closed
	var sawLeave bool
	for {
		select {
		case msg := <-h.channel.sent:
			if msg.Type == signaling.MessageTypeLeaveRoom {
				sawLeave = true
			}
		default:
			if !sawLeave {
				t.Fatal("expected a leave-room message on Close")
			}
			return
		}
	}
}

func TestClientCloseIsIdempotent(t *testing.T) {
	h := newHarness(t)
	h.start(t)

	h.client.Close()
	h.client.Close()
	h.client.Close()

	if got := h.client.Status(); got != StatusClosed {
		t.Fatalf("expected closed, got %s", got)
	}
}

func TestClientDropsCandidatesAfterClose(t *testing.T) {
	h := newHarness(t)
	h.start(t)

	h.client.Close()
	<-h.client.Done()

	// Drain everything sent during teardown
	for {
		select {
		case <-h.channel.sent:
			continue
		default:
		}
		break
	}

	h.peer.onCandidate(webrtc.ICECandidateInit{Candidate: "candidate:stale"})
	h.channel.assertNothingSent(t)
}

func TestClientSignalingLossTearsDown(t *testing.T) {
	h := newHarness(t)
	h.start(t)

	// Server side goes away
	h.channel.Close()

	select {
	case <-h.client.Done():
	case <-time.After(time.Second):
		t.Fatal("client did not tear down after signaling loss")
	}
	if got := h.client.Status(); got != StatusDisconnected {
		t.Fatalf("expected disconnected, got %s", got)
	}
}

func TestClientTogglesDriveLocalMedia(t *testing.T) {
	h := newHarness(t)
	h.start(t)
	defer h.client.Close()

	if !h.client.AudioEnabled() || !h.client.VideoEnabled() {
		t.Fatal("media should start enabled")
	}
	if h.client.ToggleAudio() {
		t.Fatal("expected audio off after toggle")
	}
	if h.client.ToggleVideo() {
		t.Fatal("expected video off after toggle")
	}

	// The captured media observes the toggles
	audio, video := h.media.state()
	if audio || video {
		t.Fatalf("expected media disabled, got audio=%v video=%v", audio, video)
	}

	if !h.client.ToggleAudio() {
		t.Fatal("expected audio back on after second toggle")
	}
	if audio, _ := h.media.state(); !audio {
		t.Fatal("expected media audio re-enabled")
	}

	// Mute is local: nothing goes over signaling
	h.channel.assertNothingSent(t)
}

// TestClientIgnoresSecondJoin covers a stray third participant: a live
// two-party connection must not be disturbed by another user-joined.
func TestClientIgnoresSecondJoin(t *testing.T) {
	h := newHarness(t)
	h.start(t)
	defer h.client.Close()

	remote := uuid.New()
	h.deliver(signaling.NewMessage(signaling.MessageTypeUserJoined, "sess-42",
		signaling.UserJoinedPayload{UserID: remote, UserType: "student", TotalUsers: 2}))
	first := h.channel.nextSent(t)
	if first.Type != signaling.MessageTypeOffer || first.To != remote {
		t.Fatalf("expected offer to %s, got %s to %s", remote, first.Type, first.To)
	}

	intruder := uuid.New()
	h.deliver(signaling.NewMessage(signaling.MessageTypeUserJoined, "sess-42",
		signaling.UserJoinedPayload{UserID: intruder, UserType: "student", TotalUsers: 3}))

	h.channel.assertNothingSent(t)
	offers, _, _, _ := h.peer.snapshot()
	if offers != 1 {
		t.Fatalf("expected exactly one offer, got %d", offers)
	}
}

// TestClientIgnoresAnswerFromStranger verifies only the offered-to peer can
// complete the handshake.
func TestClientIgnoresAnswerFromStranger(t *testing.T) {
	h := newHarness(t)
	h.start(t)
	defer h.client.Close()

	remote := uuid.New()
	h.deliver(signaling.NewMessage(signaling.MessageTypeUserJoined, "sess-42",
		signaling.UserJoinedPayload{UserID: remote, UserType: "student", TotalUsers: 2}))
	h.channel.nextSent(t) // the offer

	stray := signaling.NewMessage(signaling.MessageTypeAnswer, "sess-42",
		webrtc.SessionDescription{Type: webrtc.SDPTypeAnswer, SDP: "v=0 stray"})
	stray.From = uuid.New()
	h.deliver(stray)

	time.Sleep(20 * time.Millisecond)
	if _, _, _, remoteSets := h.peer.counts(); remoteSets != 0 {
		t.Fatalf("stray answer must not be applied, got %d remote descriptions", remoteSets)
	}

	genuine := signaling.NewMessage(signaling.MessageTypeAnswer, "sess-42",
		webrtc.SessionDescription{Type: webrtc.SDPTypeAnswer, SDP: "v=0 real"})
	genuine.From = remote
	h.deliver(genuine)

	waitFor(t, "genuine answer to apply", func() bool {
		_, _, _, remoteSets := h.peer.counts()
		return remoteSets == 1
	})
}

func TestClientStatusProgression(t *testing.T) {
	h := newHarness(t)
	h.start(t)

	remote := uuid.New()
	h.deliver(signaling.NewMessage(signaling.MessageTypeUserJoined, "sess-42",
		signaling.UserJoinedPayload{UserID: remote, UserType: "student", TotalUsers: 2}))
	h.channel.nextSent(t)

	waitFor(t, "connecting status", func() bool {
		return h.client.Status() == StatusConnecting
	})
	h.peer.onState(webrtc.PeerConnectionStateConnected)
	h.client.Close()
	<-h.client.Done()

	statuses := h.seenStatuses()
	want := []Status{StatusWaiting, StatusConnecting, StatusConnected, StatusClosed}
	if len(statuses) != len(want) {
		t.Fatalf("expected statuses %v, got %v", want, statuses)
	}
	for i := range want {
		if statuses[i] != want[i] {
			t.Fatalf("expected statuses %v, got %v", want, statuses)
		}
	}
}
