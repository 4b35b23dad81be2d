package task

import "fmt"

// Resolve maps a user-typed prefix to exactly one live task ID. Matching is
// case-sensitive substring-at-start, no fuzzing. Zero matches and two-or-more
// matches both report ErrNotFound: ambiguity is collapsed into not-found
// rather than surfaced as a distinct condition.
func (s *Store) Resolve(prefix string) (string, error) {
	if prefix == "" {
		return "", fmt.Errorf("prefix must not be empty: %w", ErrInvalidArgument)
	}
	rows, err := s.db.Query(`
		SELECT id FROM tasks
		WHERE deleted_at IS NULL AND substr(id, 1, length(?1)) = ?1
		LIMIT 2`, prefix)
	if err != nil {
		return "", fmt.Errorf("resolve prefix: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return "", err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return "", err
	}
	if len(ids) != 1 {
		return "", fmt.Errorf("prefix %q: %w", prefix, ErrNotFound)
	}
	return ids[0], nil
}
