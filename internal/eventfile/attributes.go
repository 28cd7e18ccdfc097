package eventfile

import (
	"context"
	"database/sql"
	"errors"

	"github.com/banshee-data/cherenkov.pipe/internal/pipeerr"
)

// Well known file attributes.
const (
	AttrDataLevels       = "CTA PRODUCT DATA LEVELS"
	AttrCreator          = "CTA PRODUCT CREATOR"
	AttrCreationTime     = "CTA PRODUCT CREATION TIME"
	AttrSubarrayName     = "CTA SUBARRAY NAME"
	AttrActivityID       = "CTA PRODUCT ACTIVITY ID"
	AttrDataModelVersion = "CTA DATA MODEL VERSION"
)

// SetAttribute stores a file level key/value attribute.
func (f *File) SetAttribute(ctx context.Context, key, value string) error {
	if f.readOnly {
		return pipeerr.Wrap(pipeerr.CodeIO, "set attribute", ErrReadOnly)
	}
	_, err := f.db.ExecContext(ctx,
		`INSERT INTO file_attributes (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`, key, value)
	if err != nil {
		return pipeerr.Wrap(pipeerr.CodeIO, "set attribute "+key, err)
	}
	return nil
}

// Attribute returns a file attribute. ok is false when it is not set or
// the file predates attributes.
func (f *File) Attribute(ctx context.Context, key string) (value string, ok bool, err error) {
	err = f.db.QueryRowContext(ctx, `SELECT value FROM file_attributes WHERE key = ?`, key).Scan(&value)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return "", false, nil
	case err != nil:
		has, herr := f.HasDataset(ctx, "file_attributes")
		if herr == nil && !has {
			return "", false, nil
		}
		return "", false, pipeerr.Wrap(pipeerr.CodeIO, "read attribute "+key, err)
	}
	return value, true, nil
}

// Attributes returns every file attribute.
func (f *File) Attributes(ctx context.Context) (map[string]string, error) {
	out := map[string]string{}
	has, err := f.HasDataset(ctx, "file_attributes")
	if err != nil || !has {
		return out, err
	}
	rows, err := f.db.QueryContext(ctx, `SELECT key, value FROM file_attributes ORDER BY key`)
	if err != nil {
		return nil, pipeerr.Wrap(pipeerr.CodeIO, "read attributes", err)
	}
	defer rows.Close()
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, pipeerr.Wrap(pipeerr.CodeIO, "read attributes", err)
		}
		out[k] = v
	}
	if err := rows.Err(); err != nil {
		return nil, pipeerr.Wrap(pipeerr.CodeIO, "read attributes", err)
	}
	return out, nil
}
