package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"erlobby/internal/app/user"
	"erlobby/internal/pkg/logx"
)

const (
	// LegacyPlaytimeFileName is the pre-unification store of {identity: seconds}.
	LegacyPlaytimeFileName = "playtime.json"

	// LegacyMetadataFileName is the pre-unification store of {identity: {nickname, tripcode}}.
	LegacyMetadataFileName = "user_metadata.json"

	legacyNickname = "Anonymous"
	legacyCode     = "????"
)

type legacyMetadata struct {
	Nickname *string `json:"nickname"`
	Code     *string `json:"tripcode"`
}

// MigrateLegacy merges the two legacy stores found in dir into unified records.
// The boolean result reports whether at least one legacy file was present and readable.
// The anonymous identity is never imported.
func MigrateLegacy(dir string) (Records, bool, error) {
	records := Records{}
	found := false

	var playtime map[string]json.RawMessage
	ok, err := readLegacy(filepath.Join(dir, LegacyPlaytimeFileName), &playtime)
	if err != nil {
		return nil, false, err
	}
	if ok {
		found = true
		for id, raw := range playtime {
			if user.IsAnonymous(id) {
				continue
			}

			var seconds float64
			if err := json.Unmarshal(raw, &seconds); err != nil {
				logx.Warn("Skipping malformed legacy playtime entry", "identity", id)
				continue
			}

			rec := records[id]
			rec.PlaytimeSeconds += seconds
			records[id] = rec
		}
	}

	var metadata map[string]json.RawMessage
	ok, err = readLegacy(filepath.Join(dir, LegacyMetadataFileName), &metadata)
	if err != nil {
		return nil, false, err
	}
	if ok {
		found = true
		for id, raw := range metadata {
			if user.IsAnonymous(id) {
				continue
			}

			var meta legacyMetadata
			if err := json.Unmarshal(raw, &meta); err != nil {
				logx.Warn("Skipping malformed legacy metadata entry", "identity", id)
				continue
			}

			rec := records[id]
			rec.Nickname = legacyNickname
			if meta.Nickname != nil {
				rec.Nickname = *meta.Nickname
			}
			rec.Code = legacyCode
			if meta.Code != nil {
				rec.Code = *meta.Code
			}
			records[id] = rec
		}
	}

	return records, found, nil
}

// readLegacy decodes the JSON file at path into dst. A missing file is not an error.
func readLegacy(path string, dst any) (bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("reading legacy file %s: %w", filepath.Base(path), err)
	}

	if err := json.Unmarshal(data, dst); err != nil {
		logx.Error(err, "Legacy file is not valid JSON; ignoring it", "file", filepath.Base(path))
		return false, nil
	}
	return true, nil
}

// LoadOrMigrate is the versioned record loader.
//
// It returns the unified store when one exists. Only when it does not are the legacy
// files in legacyDir consulted; if any are found their merged content is persisted
// through store once, so later starts never read them again.
func LoadOrMigrate(ctx context.Context, store RecordStore, legacyDir string) (Records, error) {
	records, err := store.LoadRecords(ctx)
	if err == nil {
		return sanitize(records), nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("loading user records: %w", err)
	}

	migrated, found, err := MigrateLegacy(legacyDir)
	if err != nil {
		return nil, fmt.Errorf("migrating legacy records: %w", err)
	}
	if !found {
		logx.Info("No unified user store and no legacy files; starting empty")
		return Records{}, nil
	}

	if err := store.SaveRecords(ctx, migrated); err != nil {
		return nil, fmt.Errorf("persisting migrated records: %w", err)
	}

	logx.Info("Migrated legacy user data into the unified store", "records", len(migrated))
	return migrated, nil
}

// ReadRecords returns the records LoadOrMigrate would return without writing anything:
// the unified store when it exists, otherwise the merged legacy files in legacyDir.
func ReadRecords(ctx context.Context, store Store, legacyDir string) (Records, error) {
	records, err := store.LoadRecords(ctx)
	if err == nil {
		return sanitize(records), nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("loading user records: %w", err)
	}

	migrated, _, err := MigrateLegacy(legacyDir)
	if err != nil {
		return nil, fmt.Errorf("reading legacy records: %w", err)
	}
	return migrated, nil
}

// sanitize drops any record stored for the anonymous identity.
func sanitize(records Records) Records {
	if records == nil {
		return Records{}
	}
	if _, ok := records[user.Anonymous]; ok {
		logx.Warn("Dropping stored record for the anonymous identity")
		delete(records, user.Anonymous)
	}
	return records
}
