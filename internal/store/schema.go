package store

// schemaVersion is stored in meta and bumped when tables change shape.
const schemaVersion = "1"

const schemaSQL = `
CREATE TABLE IF NOT EXISTS meta (
    key                  TEXT PRIMARY KEY,
    value                TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS dungeons (
    id                   INTEGER PRIMARY KEY AUTOINCREMENT,
    name                 TEXT NOT NULL UNIQUE,
    special_drops        TEXT NOT NULL DEFAULT '[]'
);

CREATE TABLE IF NOT EXISTS records (
    id                    INTEGER PRIMARY KEY AUTOINCREMENT,
    uid                   TEXT NOT NULL DEFAULT '',
    file                  TEXT NOT NULL DEFAULT '',
    source                TEXT NOT NULL DEFAULT 'markers',
    start_time            INTEGER NOT NULL,
    end_time              INTEGER NOT NULL,
    dungeon               TEXT NOT NULL,
    team_type             TEXT NOT NULL,
    leader                TEXT NOT NULL DEFAULT '',
    worker                TEXT NOT NULL DEFAULT '',
    team_total            INTEGER NOT NULL DEFAULT 0,
    subsidy_total         INTEGER NOT NULL DEFAULT 0,
    distributable         INTEGER NOT NULL DEFAULT 0,
    distribution_count    INTEGER NOT NULL DEFAULT 0,
    base_salary           INTEGER NOT NULL DEFAULT 0,
    personal_salary       INTEGER NOT NULL DEFAULT 0,
    subsidy               INTEGER NOT NULL DEFAULT 0,
    penalty_total         INTEGER NOT NULL DEFAULT 0,
    scattered_total       INTEGER NOT NULL DEFAULT 0,
    iron_total            INTEGER NOT NULL DEFAULT 0,
    other_total           INTEGER NOT NULL DEFAULT 0,
    special_total         INTEGER NOT NULL DEFAULT 0,
    scattered_consumption INTEGER NOT NULL DEFAULT 0,
    iron_consumption      INTEGER NOT NULL DEFAULT 0,
    special_consumption   INTEGER NOT NULL DEFAULT 0,
    other_consumption     INTEGER NOT NULL DEFAULT 0,
    total_consumption     INTEGER NOT NULL DEFAULT 0,
    special_items         TEXT NOT NULL DEFAULT '[]',
    lie_down_count        INTEGER NOT NULL DEFAULT 0,
    note                  TEXT NOT NULL DEFAULT '',
    committed_at          TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS filled_uids (
    uid                  TEXT PRIMARY KEY,
    fill_time            TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS folders (
    id                   INTEGER PRIMARY KEY AUTOINCREMENT,
    path                 TEXT NOT NULL UNIQUE,
    worker               TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_records_end ON records(end_time);
CREATE INDEX IF NOT EXISTS idx_records_worker ON records(worker);
CREATE INDEX IF NOT EXISTS idx_records_dungeon ON records(dungeon);
CREATE INDEX IF NOT EXISTS idx_records_uid ON records(uid);
`

// recordColumns is the column list shared by inserts and selects, in
// scanRecord order after id and committed_at.
const recordColumns = `uid, file, source, start_time, end_time, dungeon, team_type, leader, worker,
	team_total, subsidy_total, distributable, distribution_count, base_salary,
	personal_salary, subsidy, penalty_total,
	scattered_total, iron_total, other_total, special_total,
	scattered_consumption, iron_consumption, special_consumption, other_consumption, total_consumption,
	special_items, lie_down_count, note`
