package panels

import (
	"strings"
	"sync"
	"time"
)

const (
	// wordDuration approximates how long one spoken word takes.
	wordDuration = 350 * time.Millisecond
	// minUtterance keeps very short replies visible.
	minUtterance = 800 * time.Millisecond
)

// Speaker is the avatar's speech surface.
type Speaker interface {
	StartSpeaking()
	StopSpeaking()
}

// Message is one chat line.
type Message struct {
	FromUser bool
	Text     string
}

// Chat echoes what the user says and animates the pet while the reply is "spoken".
// Speech synthesis is outside the core; the utterance length is estimated from the words.
type Chat struct {
	speaker Speaker

	mu         sync.Mutex
	transcript []Message
	utterance  *time.Timer
	seq        uint64
	closed     bool
}

// NewChat returns a chat panel greeting the user.
func NewChat(speaker Speaker) *Chat {
	return &Chat{
		speaker:    speaker,
		transcript: []Message{{Text: "Hello 👋! How can I help you today?"}},
	}
}

// Send posts text and returns the reply. Blank input is ignored.
func (c *Chat) Send(text string) (string, bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", false
	}
	reply := text

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return "", false
	}
	c.transcript = append(c.transcript, Message{FromUser: true, Text: text}, Message{Text: reply})
	c.speak(reply)
	return reply, true
}

// speak must be called with mu held. A new utterance cuts the previous one short.
func (c *Chat) speak(text string) {
	if c.utterance != nil {
		c.utterance.Stop()
	}
	c.seq++
	seq := c.seq
	c.speaker.StartSpeaking()
	c.utterance = time.AfterFunc(UtteranceDuration(text), func() { c.finish(seq) })
}

// finish ends utterance seq unless a newer one has replaced it.
func (c *Chat) finish(seq uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || c.utterance == nil || seq != c.seq {
		return
	}
	c.utterance = nil
	c.speaker.StopSpeaking()
}

// UtteranceDuration estimates how long speaking text takes.
func UtteranceDuration(text string) time.Duration {
	d := time.Duration(len(strings.Fields(text))) * wordDuration
	return max(d, minUtterance)
}

// Transcript returns the conversation so far.
func (c *Chat) Transcript() []Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Message(nil), c.transcript...)
}

// Close stops any utterance in progress.
func (c *Chat) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	if c.utterance != nil {
		c.utterance.Stop()
		c.utterance = nil
		c.speaker.StopSpeaking()
	}
}
