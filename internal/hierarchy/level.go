// ABOUTME: Level enumeration for the org → product → repository ownership tree.
// ABOUTME: Wildcard is a scope marker ("every element"), not a tree position.
package hierarchy

// Level identifies one tier of the ownership hierarchy.
type Level int

const (
	LevelOrganization Level = iota + 1
	LevelProduct
	LevelRepository
	// LevelWildcard denotes "every element" (superuser scope). It is not part
	// of the top-down ordering returned by Levels.
	LevelWildcard
)

// Levels returns the real hierarchy levels in top-down order.
func Levels() []Level {
	return []Level{LevelOrganization, LevelProduct, LevelRepository}
}

// String returns the lowercase level name as stored in the database.
func (l Level) String() string {
	switch l {
	case LevelOrganization:
		return "organization"
	case LevelProduct:
		return "product"
	case LevelRepository:
		return "repository"
	case LevelWildcard:
		return "wildcard"
	}
	return "unknown"
}

// ParseLevel converts a level string from the database to a Level.
// Returns false for unrecognized values — callers decide how to fail.
func ParseLevel(s string) (Level, bool) {
	switch s {
	case "organization":
		return LevelOrganization, true
	case "product":
		return LevelProduct, true
	case "repository":
		return LevelRepository, true
	case "wildcard":
		return LevelWildcard, true
	}
	return 0, false
}
