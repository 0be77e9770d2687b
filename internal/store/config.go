package store

import (
	"database/sql"
	"fmt"
	"time"
)

// 已知的键
const (
	MetaLastSyncAt = "last_sync_at"
)

// GetMeta 读取键值
func (s *Store) GetMeta(key string) (string, error) {
	var value string
	err := s.db.QueryRow("SELECT value FROM meta WHERE key = ?", key).Scan(&value)
	if err != nil {
		if err == sql.ErrNoRows {
			return "", fmt.Errorf("meta key not found: %s", key)
		}
		return "", err
	}
	return value, nil
}

// SetMeta 写入键值
func (s *Store) SetMeta(key, value string) error {
	_, err := s.db.Exec(`
		INSERT INTO meta (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = ?, updated_at = CURRENT_TIMESTAMP
	`, key, value, value)
	return err
}

// GetAllMeta 读取全部键值
func (s *Store) GetAllMeta() (map[string]string, error) {
	rows, err := s.db.Query("SELECT key, value FROM meta")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	meta := make(map[string]string)
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, err
		}
		meta[key] = value
	}
	return meta, rows.Err()
}

// LastSyncAt 最近一次回写完成时间；没有记录时返回零值
func (s *Store) LastSyncAt() time.Time {
	v, err := s.GetMeta(MetaLastSyncAt)
	if err != nil {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return time.Time{}
	}
	return t
}
