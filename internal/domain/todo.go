package domain

// Todo is a single item on an account's list.
type Todo struct {
	ID        int64
	OwnerID   int64
	Text      string
	Completed bool
}

// TodoPatch carries the fields a client may change on an existing todo.
// Nil fields are left untouched.
type TodoPatch struct {
	Text      *string
	Completed *bool
}

// Apply merges the patch into t.
func (p TodoPatch) Apply(t *Todo) {
	if p.Text != nil {
		t.Text = *p.Text
	}
	if p.Completed != nil {
		t.Completed = *p.Completed
	}
}
