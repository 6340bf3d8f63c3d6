package domain

// StorageObjectRecord is the row payload inside a storage-provider
// notification. Only the fields the ingestion path needs are declared;
// unknown fields in the incoming JSON are ignored.
type StorageObjectRecord struct {
	ID         string   `json:"id"`
	BucketID   string   `json:"bucket_id"`
	Name       string   `json:"name"`
	PathTokens []string `json:"path_tokens"`
}

// StorageWebhookEvent mirrors the storage provider's row-insert notification.
type StorageWebhookEvent struct {
	Type   string              `json:"type"`
	Table  string              `json:"table"`
	Record StorageObjectRecord `json:"record"`
}

// ObjectPath joins the record's path tokens into the bucket-relative path,
// falling back to the object name when no tokens are present.
func (e StorageWebhookEvent) ObjectPath() string {
	if len(e.Record.PathTokens) == 0 {
		return e.Record.Name
	}
	path := e.Record.PathTokens[0]
	for _, token := range e.Record.PathTokens[1:] {
		path += "/" + token
	}
	return path
}

// ShouldIngest reports whether this event is a new object landing in the
// raw bucket. Everything else is acknowledged without side effects.
func (e StorageWebhookEvent) ShouldIngest(bucket string) bool {
	return e.Type == "INSERT" && e.Table == "objects" && e.Record.BucketID == bucket
}
