package ingest

import (
	"fmt"
	"sync"
	"time"
)

// maxLogEntries caps the status log; older entries are dropped first.
const maxLogEntries = 50

// StatusView is the poll-friendly snapshot of an ingestion job.
type StatusView struct {
	IsRunning       bool     `json:"is_running"`
	CurrentFile     string   `json:"current_file"`
	ProgressPercent int      `json:"progress_percent"`
	TotalFiles      int      `json:"total_files"`
	ProcessedFiles  int      `json:"processed_files"`
	Log             []string `json:"log"`
}

// Status tracks the single in-flight ingestion job. It doubles as the
// job gate: TryStart succeeds for at most one caller until Finish or
// Fail releases the slot.
type Status struct {
	mu              sync.Mutex
	isRunning       bool
	currentFile     string
	progressPercent int
	totalFiles      int
	processedFiles  int
	log             []string
}

// NewStatus creates an idle status tracker.
func NewStatus() *Status {
	return &Status{log: make([]string, 0, maxLogEntries)}
}

// TryStart claims the job slot. It returns false when a job is already
// running.
func (s *Status) TryStart() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.isRunning {
		return false
	}
	s.isRunning = true
	s.currentFile = ""
	s.progressPercent = 0
	s.totalFiles = 0
	s.processedFiles = 0
	return true
}

// Update records job progress and optionally appends a log line. Percent
// is the floor of processed/total.
func (s *Status) Update(fileName string, processed, total int, logMsg string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.currentFile = fileName
	s.processedFiles = processed
	s.totalFiles = total
	if total > 0 {
		s.progressPercent = processed * 100 / total
	}
	s.appendLog(logMsg)
}

// Finish marks the job complete. Progress only reaches 100 here.
func (s *Status) Finish(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.isRunning = false
	s.currentFile = ""
	s.progressPercent = 100
	s.appendLog(msg)
}

// Fail releases the job slot after a startup failure, leaving progress
// where it stopped.
func (s *Status) Fail(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.isRunning = false
	s.currentFile = ""
	s.appendLog(msg)
}

// Snapshot returns a copy of the current state for polling clients.
func (s *Status) Snapshot() StatusView {
	s.mu.Lock()
	defer s.mu.Unlock()

	logCopy := make([]string, len(s.log))
	copy(logCopy, s.log)
	return StatusView{
		IsRunning:       s.isRunning,
		CurrentFile:     s.currentFile,
		ProgressPercent: s.progressPercent,
		TotalFiles:      s.totalFiles,
		ProcessedFiles:  s.processedFiles,
		Log:             logCopy,
	}
}

// IsRunning reports whether a job currently holds the slot.
func (s *Status) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isRunning
}

// appendLog adds a timestamped entry, dropping the oldest past the cap.
// Caller must hold s.mu.
func (s *Status) appendLog(msg string) {
	if msg == "" {
		return
	}
	entry := fmt.Sprintf("[%s] %s", time.Now().Format("15:04:05"), msg)
	s.log = append(s.log, entry)
	if len(s.log) > maxLogEntries {
		s.log = s.log[len(s.log)-maxLogEntries:]
	}
}
