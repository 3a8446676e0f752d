package services

import (
	"errors"
	"fmt"
)

// Общие ошибки, используемые в разных сервисах и маппинге HTTP.
// Конкретные ошибки оборачивают свой класс, так что errors.Is работает по классу.
var (
	// Ресурс не найден (универсальная)
	ErrNotFound = errors.New("not found")

	ErrTournamentNotFound   = fmt.Errorf("tournament %w", ErrNotFound)
	ErrRegistrationNotFound = fmt.Errorf("registration %w", ErrNotFound)
	ErrMatchNotFound        = fmt.Errorf("match %w", ErrNotFound)
	ErrTeamNotFound         = fmt.Errorf("team %w", ErrNotFound)
	ErrGameNotFound         = fmt.Errorf("game %w", ErrNotFound)

	// Ошибки валидации
	ErrValidationFailed = errors.New("validation failed")

	ErrTournamentNameRequired     = fmt.Errorf("%w: tournament name is required", ErrValidationFailed)
	ErrTournamentInvalidBracket   = fmt.Errorf("%w: unknown bracket type", ErrValidationFailed)
	ErrTournamentInvalidCapacity  = fmt.Errorf("%w: max participants must be at least 2", ErrValidationFailed)
	ErrTournamentInvalidTeamSize  = fmt.Errorf("%w: team size must be at least 1", ErrValidationFailed)
	ErrTournamentDatesRequired    = fmt.Errorf("%w: start date is required", ErrValidationFailed)
	ErrTournamentInvalidDateRange = fmt.Errorf("%w: end date must be after start date", ErrValidationFailed)
	ErrTournamentInvalidDeadline  = fmt.Errorf("%w: registration deadline must be before start date", ErrValidationFailed)
	ErrTournamentInvalidPrize     = fmt.Errorf("%w: invalid prize pool or distribution", ErrValidationFailed)
	ErrTournamentInvalidStatus    = fmt.Errorf("%w: invalid tournament status provided", ErrValidationFailed)
	ErrRegistrationInvalidStatus  = fmt.Errorf("%w: invalid registration status provided", ErrValidationFailed)
	ErrRegistrationTeamRequired   = fmt.Errorf("%w: team id is required for team tournaments", ErrValidationFailed)
	ErrRegistrationTeamNotAllowed = fmt.Errorf("%w: team id is not allowed for solo tournaments", ErrValidationFailed)
	ErrInvalidSeed                = fmt.Errorf("%w: seed must be a positive number", ErrValidationFailed)
	ErrInvalidScore               = fmt.Errorf("%w: scores cannot be negative", ErrValidationFailed)
	ErrInvalidPlayoffSize         = fmt.Errorf("%w: playoff size must be between 2 and the number of participants", ErrValidationFailed)
	ErrInvalidFileType            = fmt.Errorf("%w: unsupported file type", ErrValidationFailed)
	ErrInvalidKFactor             = fmt.Errorf("%w: k-factor must be a positive number", ErrValidationFailed)
	ErrCapacityBelowRegistrations = fmt.Errorf("%w: max participants is below the current number of registrations", ErrValidationFailed)
	ErrPlayoffNotSupported        = fmt.Errorf("%w: playoffs are only available for round robin tournaments", ErrValidationFailed)
	ErrStandingsNotSupported      = fmt.Errorf("%w: standings are only available for round robin tournaments", ErrValidationFailed)
	ErrGameNameRequired           = fmt.Errorf("%w: game name is required", ErrValidationFailed)

	// Ошибки состояния: операция недопустима в текущем статусе
	ErrStateConflict = errors.New("operation not allowed in the current state")

	ErrRegistrationClosed                = fmt.Errorf("%w: tournament registration is closed", ErrStateConflict)
	ErrRegistrationLocked                = fmt.Errorf("%w: registration can no longer be changed", ErrStateConflict)
	ErrRegistrationInvalidTransition     = fmt.Errorf("%w: invalid registration status transition", ErrStateConflict)
	ErrTournamentNotEditable             = fmt.Errorf("%w: tournament can only be edited in draft or registration", ErrStateConflict)
	ErrTournamentInvalidStatusTransition = fmt.Errorf("%w: invalid tournament status transition", ErrStateConflict)
	ErrTournamentNotLive                 = fmt.Errorf("%w: tournament is not live", ErrStateConflict)
	ErrBracketIncomplete                 = fmt.Errorf("%w: bracket still has unfinished matches", ErrStateConflict)
	ErrBracketNotAllowed                 = fmt.Errorf("%w: bracket can only be generated during registration or live", ErrStateConflict)
	ErrMatchNotReady                     = fmt.Errorf("%w: match does not have two participants yet", ErrStateConflict)
	ErrMatchInvalidTransition            = fmt.Errorf("%w: invalid match status transition", ErrStateConflict)
	ErrMatchLocked                       = fmt.Errorf("%w: a later match already depends on this result", ErrStateConflict)
	ErrRatingConflict                    = fmt.Errorf("%w: player rating was changed concurrently, try again", ErrStateConflict)

	// Ошибки конфликтов
	ErrTournamentFull       = errors.New("tournament registration is full")
	ErrRegistrationConflict = errors.New("user or team is already registered for this tournament")
	ErrGameNameConflict     = errors.New("game name is already in use")

	// Ошибки генерации сетки
	ErrAlreadyGenerated         = errors.New("bracket is already generated for this tournament")
	ErrInsufficientParticipants = errors.New("not enough confirmed participants to generate a bracket (minimum 2)")

	ErrInvalidWinner = errors.New("winner must be one of the match participants")

	// Ошибки авторизации
	ErrForbiddenOperation = errors.New("operation not allowed for the current user")

	ErrNotOwner   = fmt.Errorf("%w: only the tournament organizer or an admin can perform this action", ErrForbiddenOperation)
	ErrNotManager = fmt.Errorf("%w: only the tournament organizer or an admin can manage matches", ErrForbiddenOperation)
	ErrNotCaptain = fmt.Errorf("%w: only the team captain can perform this action", ErrForbiddenOperation)

	ErrStorageUnavailable = errors.New("file storage is not configured")
)
