package mailer

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/mvlbulankin/yamdb-final/pkg/logger"
	"go.uber.org/zap"
)

type outboxEntry struct {
	Message
	SentAt time.Time `json:"sent_at"`
}

// FileSender appends every message to a JSON-lines outbox instead of
// delivering it. Used in development and tests.
type FileSender struct {
	filePath string
	from     string
	file     *os.File
	mu       sync.Mutex
}

func NewFileSender(filePath, from string) (*FileSender, error) {
	if err := os.MkdirAll(filepath.Dir(filePath), 0755); err != nil {
		return nil, err
	}

	file, err := os.OpenFile(filePath, os.O_CREATE|os.O_RDWR|os.O_APPEND, 0644)
	if err != nil {
		return nil, err
	}

	return &FileSender{
		filePath: filePath,
		from:     from,
		file:     file,
	}, nil
}

func (f *FileSender) Send(ctx context.Context, to, subject, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := json.Marshal(outboxEntry{
		Message: Message{From: f.from, To: to, Subject: subject, Body: body},
		SentAt:  time.Now().UTC(),
	})
	if err != nil {
		return err
	}

	if _, err := f.file.Write(append(data, '\n')); err != nil {
		logger.Log.Error("Outbox: failed to write message",
			zap.String("to", to),
			zap.Error(err),
		)
		return err
	}

	if err := f.file.Sync(); err != nil {
		return err
	}

	logger.Log.Debug("Outbox: message written",
		zap.String("to", to),
		zap.String("subject", subject),
	)
	return nil
}

// ReadAll returns the outbox contents in write order. Lines that fail to
// decode are skipped.
func (f *FileSender) ReadAll() ([]Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	file, err := os.Open(f.filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return []Message{}, nil
		}
		return nil, err
	}
	defer file.Close()

	var messages []Message
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		var entry outboxEntry
		if err := json.Unmarshal(scanner.Bytes(), &entry); err != nil {
			continue
		}
		messages = append(messages, entry.Message)
	}
	return messages, scanner.Err()
}

func (f *FileSender) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.file.Close()
}
