package speech

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hammamikhairi/ottospeak/internal/domain"
	"github.com/hammamikhairi/ottospeak/internal/logger"
)

var testVoice = domain.Voice{
	LanguageTag: "zh-CN",
	DisplayName: "Microsoft Kangkang - Chinese (Simplified, PRC)",
	Handle:      "zh-CN-KangkangRUS",
}

func testLogger() *logger.Logger {
	return logger.New(logger.LevelOff, nil)
}

// newTestMouth starts a Mouth over the stub synthesizer and a silent sink.
func newTestMouth(t *testing.T, perRune time.Duration, opts ...MouthOption) (*Mouth, *NullSink) {
	t.Helper()
	sink := NewNullSink()
	m := NewMouth(NewStubSynthesizer(perRune, testLogger()), StaticVoices{testVoice}, sink, testLogger(), opts...)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	m.Start(ctx)
	return m, sink
}

func utterance(id, text string) domain.Utterance {
	return domain.Utterance{ID: id, Text: text, Voice: testVoice, Prosody: domain.Prosody{Pitch: 1, Rate: 1}}
}

type outcome struct {
	id  string
	err error
}

// recorder collects onFinished callbacks in order.
type recorder struct {
	mu   sync.Mutex
	done []outcome
	ch   chan outcome
}

func newRecorder() *recorder {
	return &recorder{ch: make(chan outcome, 16)}
}

func (r *recorder) callback(id string) func(error) {
	return func(err error) {
		o := outcome{id: id, err: err}
		r.mu.Lock()
		r.done = append(r.done, o)
		r.mu.Unlock()
		r.ch <- o
	}
}

func (r *recorder) next(t *testing.T) outcome {
	t.Helper()
	select {
	case o := <-r.ch:
		return o
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for an utterance to finish")
		return outcome{}
	}
}

func TestMouthPlaysInArrivalOrder(t *testing.T) {
	m, _ := newTestMouth(t, time.Millisecond)
	rec := newRecorder()

	m.Enqueue(utterance("1", "one"), rec.callback("1"))
	m.Enqueue(utterance("2", "two"), rec.callback("2"))
	m.Enqueue(utterance("3", "three"), rec.callback("3"))

	for _, want := range []string{"1", "2", "3"} {
		o := rec.next(t)
		assert.Equal(t, want, o.id)
		assert.NoError(t, o.err)
	}
	assert.Zero(t, m.QueueLen())
}

func TestMouthClearQueueInterrupts(t *testing.T) {
	m, _ := newTestMouth(t, 50*time.Millisecond)
	rec := newRecorder()

	m.Enqueue(utterance("long", "this takes a while"), rec.callback("long"))
	m.Enqueue(utterance("next", "waiting"), rec.callback("next"))
	require.Eventually(t, m.IsSpeaking, time.Second, time.Millisecond)

	start := time.Now()
	m.ClearQueue()

	got := map[string]error{}
	for i := 0; i < 2; i++ {
		o := rec.next(t)
		got[o.id] = o.err
	}
	assert.ErrorIs(t, got["long"], domain.ErrInterrupted)
	assert.ErrorIs(t, got["next"], domain.ErrInterrupted)
	assert.Less(t, time.Since(start), 500*time.Millisecond)
}

func TestMouthSpeaksAgainAfterClear(t *testing.T) {
	m, _ := newTestMouth(t, 20*time.Millisecond)
	rec := newRecorder()

	m.Enqueue(utterance("old", "superseded text"), rec.callback("old"))
	require.Eventually(t, m.IsSpeaking, time.Second, time.Millisecond)
	m.ClearQueue()
	m.Enqueue(utterance("new", "hi"), rec.callback("new"))

	assert.Equal(t, outcome{id: "old", err: domain.ErrInterrupted}, rec.next(t))
	o := rec.next(t)
	assert.Equal(t, "new", o.id)
	assert.NoError(t, o.err)
}

func TestMouthPauseAndResume(t *testing.T) {
	m, _ := newTestMouth(t, 10*time.Millisecond)
	rec := newRecorder()

	m.Enqueue(utterance("p", "abcde"), rec.callback("p"))
	require.Eventually(t, m.IsSpeaking, time.Second, time.Millisecond)

	m.PausePlayback()
	assert.True(t, m.IsPaused())

	select {
	case <-rec.ch:
		t.Fatal("finished while paused")
	case <-time.After(150 * time.Millisecond):
	}

	m.ResumePlayback()
	assert.False(t, m.IsPaused())
	o := rec.next(t)
	assert.NoError(t, o.err)
}

func TestMouthPauseWhenIdleIsNoop(t *testing.T) {
	m, _ := newTestMouth(t, time.Millisecond)

	m.PausePlayback()
	assert.False(t, m.IsPaused())
	m.ResumePlayback()
	assert.False(t, m.IsPaused())
}

func TestMouthClearLiftsPause(t *testing.T) {
	m, _ := newTestMouth(t, 10*time.Millisecond)
	rec := newRecorder()

	m.Enqueue(utterance("a", "abcdef"), rec.callback("a"))
	require.Eventually(t, m.IsSpeaking, time.Second, time.Millisecond)
	m.PausePlayback()

	m.ClearQueue()
	assert.False(t, m.IsPaused())
	assert.ErrorIs(t, rec.next(t).err, domain.ErrInterrupted)

	m.Enqueue(utterance("b", "b"), rec.callback("b"))
	assert.NoError(t, rec.next(t).err)
}

func TestMouthEmptyTextFinishesImmediately(t *testing.T) {
	m, _ := newTestMouth(t, time.Second)
	rec := newRecorder()

	m.Enqueue(utterance("empty", "   "), rec.callback("empty"))
	o := rec.next(t)
	assert.NoError(t, o.err)
}

func TestMouthLoadsVoices(t *testing.T) {
	m, _ := newTestMouth(t, time.Millisecond)

	select {
	case <-m.VoicesChanged():
	case <-time.After(time.Second):
		t.Fatal("voices never loaded")
	}
	assert.Equal(t, []domain.Voice{testVoice}, m.Voices())
}

type flakyLister struct {
	failures atomic.Int32
	calls    atomic.Int32
}

func (f *flakyLister) ListVoices(ctx context.Context) ([]domain.Voice, error) {
	f.calls.Add(1)
	if f.failures.Add(-1) >= 0 {
		return nil, errors.New("503 service unavailable")
	}
	return []domain.Voice{testVoice}, nil
}

func TestMouthRetriesVoiceLoad(t *testing.T) {
	lister := &flakyLister{}
	lister.failures.Store(2)

	m := NewMouth(NewStubSynthesizer(time.Millisecond, testLogger()), lister, NewNullSink(), testLogger(),
		WithVoiceLoadRetry(5, time.Millisecond))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	assert.Empty(t, m.Voices())
	m.Start(ctx)

	select {
	case <-m.VoicesChanged():
	case <-time.After(time.Second):
		t.Fatal("voices never loaded")
	}
	assert.EqualValues(t, 3, lister.calls.Load())
	assert.Len(t, m.Voices(), 1)
}

type failingSynth struct{}

func (failingSynth) Synthesize(ctx context.Context, text string, voice domain.Voice, p domain.Prosody) ([]byte, error) {
	return nil, errors.New("quota exceeded")
}

func TestMouthReportsSynthesisFailure(t *testing.T) {
	m := NewMouth(failingSynth{}, StaticVoices{testVoice}, NewNullSink(), testLogger())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	m.Start(ctx)

	rec := newRecorder()
	m.Enqueue(utterance("x", "hello"), rec.callback("x"))

	o := rec.next(t)
	require.Error(t, o.err)
	assert.NotErrorIs(t, o.err, domain.ErrInterrupted)
	assert.Contains(t, o.err.Error(), "quota exceeded")
}

func TestMouthShutdownInterruptsPending(t *testing.T) {
	sink := NewNullSink()
	m := NewMouth(NewStubSynthesizer(100*time.Millisecond, testLogger()), StaticVoices{testVoice}, sink, testLogger())
	ctx, cancel := context.WithCancel(context.Background())
	m.Start(ctx)

	rec := newRecorder()
	m.Enqueue(utterance("a", "long sentence here"), rec.callback("a"))
	m.Enqueue(utterance("b", "queued"), rec.callback("b"))
	require.Eventually(t, m.IsSpeaking, time.Second, time.Millisecond)

	cancel()
	for i := 0; i < 2; i++ {
		assert.ErrorIs(t, rec.next(t).err, domain.ErrInterrupted)
	}

	// Enqueue after shutdown is rejected straight away.
	require.Eventually(t, func() bool {
		m.mu.Lock()
		defer m.mu.Unlock()
		return m.closed
	}, time.Second, time.Millisecond)
	m.Enqueue(utterance("late", "too late"), rec.callback("late"))
	assert.ErrorIs(t, rec.next(t).err, domain.ErrInterrupted)
}

func TestMouthCachesByVoiceAndProsody(t *testing.T) {
	m, _ := newTestMouth(t, time.Millisecond)
	rec := newRecorder()

	u := utterance("1", "same text")
	m.Enqueue(u, rec.callback("1"))
	rec.next(t)
	m.Enqueue(u, rec.callback("2"))
	rec.next(t)

	faster := u
	faster.Prosody = u.Prosody.WithRate(1.5)
	m.Enqueue(faster, rec.callback("3"))
	rec.next(t)

	hits, misses := m.Cache().Stats()
	assert.EqualValues(t, 1, hits)
	assert.EqualValues(t, 2, misses)
}

func TestSplitChunks(t *testing.T) {
	m := &Mouth{chunkSize: 20}

	assert.Equal(t, []string{"Short."}, m.splitChunks("Short."))

	got := m.splitChunks("First sentence here. Second one follows! And a third?")
	assert.Equal(t, []string{"First sentence here.", "Second one follows!", "And a third?"}, got)

	cjk := m.splitChunks("今天天气很好。我们去公园散步吧！你觉得怎么样？还有别的安排吗？")
	require.Len(t, cjk, 2)
	assert.Equal(t, "今天天气很好。我们去公园散步吧！", cjk[0])

	m.chunkSize = 0
	long := "One. Two. Three. Four. Five. Six. Seven."
	assert.Equal(t, []string{long}, m.splitChunks(long))
}

func TestSplitSentencesKeepsPunctuation(t *testing.T) {
	got := splitSentences("Hi there.  How are you?fine")
	assert.Equal(t, []string{"Hi there.  ", "How are you?", "fine"}, got)
}

func TestCleanForSpeech(t *testing.T) {
	assert.Equal(t, "hello", cleanForSpeech("\x1b[31m[INFO] hello\x1b[0m  "))
	assert.Equal(t, "你好", cleanForSpeech("你好"))
}
