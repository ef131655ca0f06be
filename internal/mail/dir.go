package mail

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/zasylogic/casebridge/internal/model"
)

// DirSource reads fetched messages from a local spool directory: one JSON
// file per message under <root>/<account name>/. A separate fetch process
// owns the IMAP session and drops decoded messages here; a file stays in
// place until the message is acknowledged, so a crash or a failed record
// redelivers on the next fetch instead of losing mail.
type DirSource struct {
	Root string
}

// Fetch returns the pending messages for the account, oldest file name
// first. Fetching does not consume a message; Ack does. A missing
// account directory means no pending mail, not an error.
func (s DirSource) Fetch(ctx context.Context, account model.ProviderAccount) ([]Message, error) {
	dir := filepath.Join(s.Root, account.Name)
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read spool %s: %w", dir, err)
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		files = append(files, e.Name())
	}
	sort.Strings(files)

	var msgs []Message
	for _, name := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		path := filepath.Join(dir, name)
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			return nil, fmt.Errorf("decode %s: %w", path, err)
		}
		msg.SpoolFile = name
		msgs = append(msgs, msg)
	}
	return msgs, nil
}

// Ack archives one fetched message into the processed/ subdirectory of
// its account spool. Messages that are never acknowledged are delivered
// again by the next Fetch.
func (s DirSource) Ack(_ context.Context, account model.ProviderAccount, msg Message) error {
	if msg.SpoolFile == "" {
		return nil
	}
	dir := filepath.Join(s.Root, account.Name)
	processed := filepath.Join(dir, "processed")
	if err := os.MkdirAll(processed, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", processed, err)
	}
	if err := os.Rename(filepath.Join(dir, msg.SpoolFile), filepath.Join(processed, msg.SpoolFile)); err != nil {
		return fmt.Errorf("archive %s: %w", msg.SpoolFile, err)
	}
	return nil
}
