// Package store persists records that outlive a process, such as the open
// tab list. It is a write-through checkpoint: callers Upsert and Delete
// freely, and nothing reaches storage until Save.
//
// Three backends implement RecordStore:
//
//   - FileStore writes a JSON document next to the user's configuration.
//     Writes happen under a github.com/gofrs/flock lock and replace the file
//     with an atomic rename, so two workbench processes never interleave.
//   - GormStore keeps records in a PostgreSQL table through gorm.io/gorm,
//     for teams sharing a workspace definition on a server.
//   - ObjectStore keeps the JSON document in an S3-compatible bucket through
//     github.com/minio/minio-go/v7, so tabs follow a user between machines.
//
// Records identify themselves through the Record interface:
//
//	type TabRecord struct {
//	    ID        string `gorm:"primaryKey"`
//	    QueryText string
//	}
//
//	func (r TabRecord) RecordID() string { return r.ID }
//
//	s := store.NewFileStore[TabRecord]("/home/me/.config/workbench/tabs.json", log)
//	_ = s.Upsert(ctx, TabRecord{ID: "1"})
//	_ = s.Save(ctx)
package store
