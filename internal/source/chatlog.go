package source

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/theirongolddev/runledger/internal/model"

	_ "modernc.org/sqlite" // register sqlite driver
)

// DefaultBatchSize is how many rows one page read fetches.
const DefaultBatchSize = 5000

const (
	countQuery = `SELECT COUNT(*) FROM chatlog`
	// rowid breaks time ties so pages stay disjoint across queries.
	pageQuery  = `SELECT time, text, msg FROM chatlog ORDER BY time, rowid LIMIT ? OFFSET ?`
)

// ReadProgress is called after each page with the rows read so far.
type ReadProgress func(read, total int)

// ChatLog is a read-only handle on one chat log database.
type ChatLog struct {
	db   *sql.DB
	path string
}

// OpenChatLog opens the database at path without write access.
func OpenChatLog(path string) (*ChatLog, error) {
	db, err := sql.Open("sqlite", "file:"+path+"?mode=ro&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening chat log %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)
	return &ChatLog{db: db, path: path}, nil
}

// Close releases the database handle.
func (c *ChatLog) Close() error {
	return c.db.Close()
}

// Count returns the number of chat rows.
func (c *ChatLog) Count(ctx context.Context) (int, error) {
	var n int
	if err := c.db.QueryRowContext(ctx, countQuery).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting %s: %w", c.path, err)
	}
	return n, nil
}

// ReadAll loads every row in time order, batch rows per query.
// NULL text or msg columns read as empty strings.
func (c *ChatLog) ReadAll(ctx context.Context, batch int, progress ReadProgress) ([]model.ChatLine, error) {
	if batch <= 0 {
		batch = DefaultBatchSize
	}
	total, err := c.Count(ctx)
	if err != nil {
		return nil, err
	}
	if total == 0 {
		return nil, nil
	}

	lines := make([]model.ChatLine, 0, total)
	for offset := 0; offset < total; offset += batch {
		n, err := c.readPage(ctx, batch, offset, &lines)
		if err != nil {
			return nil, err
		}
		if progress != nil {
			progress(len(lines), total)
		}
		if n == 0 {
			break
		}
	}
	return lines, nil
}

func (c *ChatLog) readPage(ctx context.Context, limit, offset int, dst *[]model.ChatLine) (int, error) {
	rows, err := c.db.QueryContext(ctx, pageQuery, limit, offset)
	if err != nil {
		return 0, fmt.Errorf("reading %s: %w", c.path, err)
	}
	defer func() { _ = rows.Close() }()

	n := 0
	for rows.Next() {
		var (
			ts        int64
			text, msg sql.NullString
		)
		if err := rows.Scan(&ts, &text, &msg); err != nil {
			return n, fmt.Errorf("scanning %s: %w", c.path, err)
		}
		*dst = append(*dst, model.ChatLine{Time: ts, Text: text.String, Msg: msg.String})
		n++
	}
	return n, rows.Err()
}

// ReadFile opens path, reads all of it and closes it again.
func ReadFile(ctx context.Context, path string, batch int, progress ReadProgress) ([]model.ChatLine, error) {
	cl, err := OpenChatLog(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = cl.Close() }()
	return cl.ReadAll(ctx, batch, progress)
}
