package domain

// ChangeTopic groups change events by origin.
type ChangeTopic string

const (
	TopicRecords ChangeTopic = "records"
	TopicRoles   ChangeTopic = "roles"
)

// ChangeOp is the kind of mutation reported by a change feed.
type ChangeOp string

const (
	OpInsert ChangeOp = "insert"
	OpUpdate ChangeOp = "update"
	OpDelete ChangeOp = "delete"
	OpRole   ChangeOp = "role_changed"
)

// ChangeEvent is a single pushed notification.
type ChangeEvent struct {
	Topic ChangeTopic
	// Key is the collection name for record events and the identity for role events.
	Key      string
	Op       ChangeOp
	RecordID string
	// Owner is the owner attribute of the changed record, when known.
	Owner string
}
