package db

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

// Репозитории различают ошибки по именам ограничений, имена должны совпадать со схемой.
func TestSchemaDeclaresConstraintsUsedByRepositories(t *testing.T) {
	ddl := Schema()
	for _, name := range []string{
		"tournaments_game_id_fkey",
		"tournament_registrations_tournament_id_fkey",
		"tournament_registrations_team_id_fkey",
		"chk_registration_type",
		"uq_registrations_active_user",
		"uq_registrations_active_team",
		"tournament_matches_tournament_id_fkey",
		"uq_matches_tournament_uid",
		"uq_player_rankings_user_game",
	} {
		assert.Contains(t, ddl, name)
	}
}

func TestSchemaIsIdempotent(t *testing.T) {
	for _, line := range strings.Split(Schema(), "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "CREATE ") {
			assert.Contains(t, trimmed, "IF NOT EXISTS", trimmed)
		}
	}
}
