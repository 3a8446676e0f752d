package middleware

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/Dosada05/esports-platform/models"
	"github.com/golang-jwt/jwt/v4"
)

// Определяем константы для имен JWT claims
const (
	jwtClaimUserID = "user_id"
	jwtClaimRoles  = "roles"
	jwtClaimRole   = "role" // старые токены с одной ролью
)

func actorFromClaims(claims jwt.MapClaims) (models.Actor, error) {
	userID, err := userIDFromClaims(claims)
	if err != nil {
		return models.Actor{}, err
	}
	roles, err := rolesFromClaims(claims)
	if err != nil {
		return models.Actor{}, err
	}
	return models.Actor{UserID: userID, Roles: roles}, nil
}

func userIDFromClaims(claims jwt.MapClaims) (int, error) {
	userIDClaim, ok := claims[jwtClaimUserID]
	if !ok {
		return 0, fmt.Errorf("missing '%s' claim in token", jwtClaimUserID)
	}

	var userID int
	switch v := userIDClaim.(type) {
	case float64:
		if v != float64(int(v)) {
			return 0, fmt.Errorf("'%s' claim is not an integer: %f", jwtClaimUserID, v)
		}
		userID = int(v)
	case string:
		id, err := strconv.Atoi(v)
		if err != nil {
			return 0, fmt.Errorf("invalid '%s' claim: %q", jwtClaimUserID, v)
		}
		userID = id
	default:
		return 0, fmt.Errorf("invalid type for '%s' claim: expected number or string, got %T", jwtClaimUserID, userIDClaim)
	}

	if userID <= 0 {
		return 0, fmt.Errorf("invalid user ID value in '%s' claim: %d", jwtClaimUserID, userID)
	}
	return userID, nil
}

func rolesFromClaims(claims jwt.MapClaims) ([]models.UserRole, error) {
	var raw []string
	switch v := claims[jwtClaimRoles].(type) {
	case nil:
		if single, ok := claims[jwtClaimRole].(string); ok {
			raw = []string{single}
		}
	case []interface{}:
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("invalid '%s' claim: expected strings, got %T", jwtClaimRoles, item)
			}
			raw = append(raw, s)
		}
	case string:
		raw = []string{v}
	default:
		return nil, fmt.Errorf("invalid type for '%s' claim: %T", jwtClaimRoles, v)
	}

	roles := make([]models.UserRole, 0, len(raw))
	for _, s := range raw {
		role := models.UserRole(s)
		if !role.Valid() {
			return nil, fmt.Errorf("invalid role value in claim: %q", s)
		}
		roles = append(roles, role)
	}
	return roles, nil
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
