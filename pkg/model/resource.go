package model

// Resource is a mutually-exclusive, non-reentrant lockable entity.
// Owner and Waiters are mutated only by the acquisition protocol.
type Resource struct {
	ID      int      `json:"id"`
	Name    string   `json:"name"`
	Ceiling int      `json:"ceiling"`
	Owner   *Process `json:"-"`
	Waiters *Queue   `json:"-"`
}

// NewResource creates an unowned resource with an empty wait queue.
func NewResource(id int, name string, ceiling int) *Resource {
	return &Resource{
		ID:      id,
		Name:    name,
		Ceiling: ceiling,
		Waiters: NewWaitQueue(id),
	}
}

// Owned reports whether some process holds the resource.
func (r *Resource) Owned() bool {
	return r.Owner != nil
}

// OwnerID returns the owner's PID, or 0 when unowned.
func (r *Resource) OwnerID() int {
	if r.Owner == nil {
		return 0
	}
	return r.Owner.ID
}
