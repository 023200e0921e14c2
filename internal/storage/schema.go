package storage

const schema = `
-- The 'progress' table stores one scheduling record per catalog card.
CREATE TABLE IF NOT EXISTS progress (
    id INTEGER PRIMARY KEY,
    last_reviewed_at TEXT, -- RFC 3339, NULL when never reviewed
    times_reviewed INTEGER NOT NULL DEFAULT 0,
    ease_factor REAL NOT NULL,
    interval_days REAL NOT NULL,
    streak_count INTEGER NOT NULL DEFAULT 0,
    total_correct INTEGER NOT NULL DEFAULT 0,
    total_incorrect INTEGER NOT NULL DEFAULT 0,
    total_studied INTEGER NOT NULL DEFAULT 0,
    correct_streak INTEGER NOT NULL DEFAULT 0,
    incorrect_streak INTEGER NOT NULL DEFAULT 0
);

-- The 'review_log' table keeps every graded review in order.
CREATE TABLE IF NOT EXISTS review_log (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    card_id INTEGER NOT NULL,
    reviewed_at TEXT NOT NULL,
    grade INTEGER NOT NULL, -- 1: Again, 2: Hard, 3: Good, 4: Easy
    interval_days REAL NOT NULL,
    ease_factor REAL NOT NULL
);

CREATE INDEX IF NOT EXISTS review_log_card_id ON review_log(card_id);
`
