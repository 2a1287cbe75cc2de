package models

// PermissionSet is a canonical handle for one allow/deny ACL tuple. Handles
// are immutable once created; a changed ACL yields a new handle. The list
// columns store canonicalized (sorted, deduplicated) contact and group ids.
type PermissionSet struct {
	ID  int `db:"id"`
	UID int `db:"uid"`

	AllowCID []int `db:"allow_cid"`
	AllowGID []int `db:"allow_gid"`
	DenyCID  []int `db:"deny_cid"`
	DenyGID  []int `db:"deny_gid"`
}

func (ps *PermissionSet) IsEmpty() bool {
	return len(ps.AllowCID) == 0 && len(ps.AllowGID) == 0 &&
		len(ps.DenyCID) == 0 && len(ps.DenyGID) == 0
}
