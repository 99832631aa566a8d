package store

// Schema defines the SQLite schema for the ingestion catalogue: files,
// partial_downloads, volumes, and products, per spec.md §6.
const Schema = `
CREATE TABLE IF NOT EXISTS files (
    filename TEXT PRIMARY KEY,
    remote_path TEXT NOT NULL,
    local_path TEXT NOT NULL,
    size INTEGER NOT NULL,
    digest TEXT NOT NULL,
    radar TEXT NOT NULL,
    field TEXT NOT NULL,
    vol_code TEXT NOT NULL,
    vol_num TEXT NOT NULL,
    observation_instant TIMESTAMP NOT NULL,
    status TEXT NOT NULL CHECK(status IN ('completed', 'failed')),
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_files_radar_instant ON files(radar, observation_instant);

CREATE TABLE IF NOT EXISTS partial_downloads (
    filename TEXT PRIMARY KEY,
    remote_path TEXT NOT NULL,
    local_path TEXT NOT NULL,
    bytes_downloaded INTEGER NOT NULL DEFAULT 0,
    total_bytes INTEGER NOT NULL DEFAULT 0,
    attempt_count INTEGER NOT NULL DEFAULT 0,
    last_attempt TIMESTAMP
);

CREATE TABLE IF NOT EXISTS volumes (
    volume_id TEXT PRIMARY KEY,
    radar TEXT NOT NULL,
    vol_code TEXT NOT NULL,
    vol_num TEXT NOT NULL,
    observation_instant TIMESTAMP NOT NULL,
    expected_fields TEXT NOT NULL,
    downloaded_fields TEXT NOT NULL DEFAULT '',
    is_complete INTEGER NOT NULL DEFAULT 0,
    status TEXT NOT NULL DEFAULT 'pending' CHECK(status IN ('pending', 'processing', 'completed', 'failed')),
    output_path TEXT,
    error_message TEXT,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_volumes_status ON volumes(status);
CREATE INDEX IF NOT EXISTS idx_volumes_radar_instant ON volumes(radar, observation_instant);

CREATE TABLE IF NOT EXISTS products (
    volume_id TEXT NOT NULL,
    product_type TEXT NOT NULL,
    status TEXT NOT NULL DEFAULT 'pending' CHECK(status IN ('pending', 'processing', 'completed', 'failed')),
    generated_at TIMESTAMP,
    error_type TEXT,
    error_message TEXT,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    PRIMARY KEY (volume_id, product_type)
);

CREATE INDEX IF NOT EXISTS idx_products_status ON products(status);
`
