package models

// Verb is the interned activity verb table. Item rows reference verbs by id
// (vid) rather than carrying the string.
type Verb struct {
	ID   int    `db:"id"`
	Name string `db:"name"`
}

const (
	VerbPost     = "post"
	VerbLike     = "like"
	VerbDislike  = "dislike"
	VerbFollow   = "follow"
	VerbAnnounce = "announce"
	VerbTag      = "tag"
	VerbPoke     = "poke"
)

// Verbs that represent bookkeeping rather than conversation. Depending on
// policy they do not advance a thread's commented timestamp.
func VerbIsAdministrative(name string) bool {
	return name == VerbFollow || name == VerbTag
}

func VerbIsActivity(name string) bool {
	switch name {
	case VerbLike, VerbDislike, VerbFollow, VerbAnnounce, VerbTag, VerbPoke:
		return true
	}
	return false
}
