// Package source discovers game folders' chat log databases and sidecar
// session files and reads them into chat lines.
package source

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/theirongolddev/runledger/internal/analyzer"
)

const chatLogExt = ".db"

// ErrNoChatLog is returned by ValidateFolder for folders without the
// userdata/chat_log layout.
var ErrNoChatLog = errors.New("folder has no userdata/chat_log directory")

// ChatFile is one chat log database found under a game folder.
type ChatFile struct {
	Path      string
	Name      string
	Folder    string
	Worker    string
	Size      int64
	ModTime   time.Time
	Oversized bool
}

// ChatLogDir is where the client keeps chat log databases.
func ChatLogDir(folder string) string {
	return filepath.Join(folder, "userdata", "chat_log")
}

// SidecarDir is where the team-ledger addon writes its session files.
func SidecarDir(folder string) string {
	return filepath.Join(folder, "userdata", "gkp")
}

// DefaultWorker names a folder's worker after the folder itself.
func DefaultWorker(folder string) string {
	return filepath.Base(filepath.Clean(folder))
}

// ValidateFolder checks that folder looks like a game data folder.
func ValidateFolder(folder string) error {
	info, err := os.Stat(ChatLogDir(folder))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%s: %w", folder, ErrNoChatLog)
		}
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("%s: %w", folder, ErrNoChatLog)
	}
	return nil
}

// ScanFolder lists the chat log databases of a game folder in name order.
// Files larger than maxBytes come back with Oversized set; maxBytes <= 0
// disables the limit. A folder without a chat_log directory yields nothing.
func ScanFolder(folder, worker string, maxBytes int64) ([]ChatFile, error) {
	dir := ChatLogDir(folder)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading %s: %w", dir, err)
	}
	if worker == "" {
		worker = DefaultWorker(folder)
	}

	var files []ChatFile
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), chatLogExt) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue // removed between ReadDir and Info
		}
		if !info.Mode().IsRegular() {
			continue
		}
		files = append(files, ChatFile{
			Path:      filepath.Join(dir, e.Name()),
			Name:      e.Name(),
			Folder:    folder,
			Worker:    worker,
			Size:      info.Size(),
			ModTime:   info.ModTime(),
			Oversized: maxBytes > 0 && info.Size() > maxBytes,
		})
	}
	return files, nil
}

// ScanSidecars parses every sidecar session file of a folder, ordered by
// session start. Names that match neither sidecar pattern are skipped.
func ScanSidecars(folder string, loc *time.Location) ([]analyzer.Sidecar, error) {
	dir := SidecarDir(folder)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading %s: %w", dir, err)
	}

	var out []analyzer.Sidecar
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), analyzer.SidecarExt) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if sc, ok := analyzer.ParseSidecar(e.Name(), info.ModTime(), loc); ok {
			out = append(out, sc)
		}
	}
	analyzer.SortSidecars(out)
	return out, nil
}
