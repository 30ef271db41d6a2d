package tts

import (
	"sync"

	"github.com/hammamikhairi/ottospeak/internal/domain"
)

var (
	kangkang = domain.Voice{LanguageTag: "zh-CN", DisplayName: DefaultVoiceName, Handle: "zh-CN-Kangkang"}
	huihui   = domain.Voice{LanguageTag: "zh-CN", DisplayName: "Microsoft Huihui - Chinese (Simplified, PRC)", Handle: "zh-CN-Huihui"}
	david    = domain.Voice{LanguageTag: "en-US", DisplayName: "Microsoft David - English (United States)", Handle: "en-US-David"}
)

type queued struct {
	u    domain.Utterance
	done func(error)
}

// fakeEngine is an in-memory Engine. Utterances stay queued until the test
// calls finishNext.
type fakeEngine struct {
	mu       sync.Mutex
	voices   []domain.Voice
	reads    int // Voices calls that returned a populated list
	queue    []queued
	enqueued int
	clears   int
	pauses   int
	resumes  int
}

func newFakeEngine(voices ...domain.Voice) *fakeEngine {
	return &fakeEngine{voices: voices}
}

func (f *fakeEngine) Voices() []domain.Voice {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.voices) > 0 {
		f.reads++
	}
	return append([]domain.Voice(nil), f.voices...)
}

func (f *fakeEngine) setVoices(v ...domain.Voice) {
	f.mu.Lock()
	f.voices = v
	f.mu.Unlock()
}

func (f *fakeEngine) populatedReads() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.reads
}

func (f *fakeEngine) Enqueue(u domain.Utterance, onFinished func(error)) {
	f.mu.Lock()
	f.queue = append(f.queue, queued{u: u, done: onFinished})
	f.enqueued++
	f.mu.Unlock()
}

func (f *fakeEngine) ClearQueue() {
	f.mu.Lock()
	pending := f.queue
	f.queue = nil
	f.clears++
	f.mu.Unlock()

	for _, q := range pending {
		q.done(domain.ErrInterrupted)
	}
}

func (f *fakeEngine) PausePlayback() {
	f.mu.Lock()
	f.pauses++
	f.mu.Unlock()
}

func (f *fakeEngine) ResumePlayback() {
	f.mu.Lock()
	f.resumes++
	f.mu.Unlock()
}

// finishNext completes the head of the queue and returns it.
func (f *fakeEngine) finishNext() (domain.Utterance, bool) {
	f.mu.Lock()
	if len(f.queue) == 0 {
		f.mu.Unlock()
		return domain.Utterance{}, false
	}
	head := f.queue[0]
	f.queue = f.queue[1:]
	f.mu.Unlock()

	head.done(nil)
	return head.u, true
}

func (f *fakeEngine) queuedTexts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.queue))
	for _, q := range f.queue {
		out = append(out, q.u.Text)
	}
	return out
}

func (f *fakeEngine) counts() (enqueued, clears, pauses, resumes int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.enqueued, f.clears, f.pauses, f.resumes
}

// notifyingEngine also announces voice directory changes.
type notifyingEngine struct {
	*fakeEngine
	changed chan struct{}
}

func (n *notifyingEngine) VoicesChanged() <-chan struct{} { return n.changed }
