package clip

import (
	"bytes"
	"sync"
)

// Memory is a process-local clipboard. It backs headless environments
// (containers, CI) and tests; Set simulates another application copying.
type Memory struct {
	mu    sync.Mutex
	count int64
	text  string
	image []byte
	err   error
}

// NewMemory returns an empty in-memory clipboard.
func NewMemory() *Memory { return &Memory{} }

func (m *Memory) Name() string { return "in-memory" }

func (m *Memory) ChangeCount() (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.count, nil
}

func (m *Memory) ReadImage() ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	return bytes.Clone(m.image), nil
}

func (m *Memory) ReadText() (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return "", m.err
	}
	return m.text, nil
}

func (m *Memory) WriteText(text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.text, m.image = text, nil
	m.count++
	return nil
}

func (m *Memory) WriteImage(png []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.text, m.image = "", bytes.Clone(png)
	m.count++
	return nil
}

// Bump advances the change count without touching the contents, as happens
// when another application re-copies the same data.
func (m *Memory) Bump() {
	m.mu.Lock()
	m.count++
	m.mu.Unlock()
}

// FailReads makes every read return err until it is called again with nil.
func (m *Memory) FailReads(err error) {
	m.mu.Lock()
	m.err = err
	m.mu.Unlock()
}

func (m *Memory) Close() {}
