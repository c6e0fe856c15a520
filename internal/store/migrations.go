package store

const schema = `
CREATE TABLE IF NOT EXISTS trending_items (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    hashtag     TEXT NOT NULL,
    caption     TEXT NOT NULL,
    post_url    TEXT NOT NULL DEFAULT '',
    likes       INTEGER NOT NULL DEFAULT 0,
    comments    INTEGER NOT NULL DEFAULT 0,
    fetched_at  DATETIME NOT NULL,
    UNIQUE(hashtag, caption)
);

CREATE INDEX IF NOT EXISTS idx_trending_fetched_at ON trending_items(fetched_at);
CREATE INDEX IF NOT EXISTS idx_trending_hashtag ON trending_items(hashtag);

CREATE TABLE IF NOT EXISTS matched_trends (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    username    TEXT NOT NULL,
    hashtag     TEXT NOT NULL,
    match_score REAL NOT NULL,
    reasoning   TEXT NOT NULL,
    created_at  DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_matched_username ON matched_trends(username);
CREATE INDEX IF NOT EXISTS idx_matched_score ON matched_trends(match_score);
`
