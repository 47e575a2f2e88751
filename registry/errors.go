package registry

import (
	"fmt"
	"strings"

	apperrors "projectvoice/errors"
)

func invalidDescriptor(kind, reason string) *apperrors.AppError {
	return apperrors.NewError(apperrors.ErrCodeInvalidDescriptor,
		fmt.Sprintf("invalid %s descriptor: %s", kind, reason)).
		WithContext("kind", kind)
}

func duplicateID(kind, id string) *apperrors.AppError {
	return apperrors.NewError(apperrors.ErrCodeDuplicateID,
		fmt.Sprintf("%s %q is already registered", kind, id)).
		WithContext("kind", kind).
		WithContext("id", id)
}

func missingDependency(kind, id, dependency string) *apperrors.AppError {
	return apperrors.NewError(apperrors.ErrCodeMissingDependency,
		fmt.Sprintf("%s %q depends on unregistered %q", kind, id, dependency)).
		WithContext("kind", kind).
		WithContext("id", id).
		WithContext("dependency", dependency)
}

func cyclicDependency(kind string, cycle, blocked []string) *apperrors.AppError {
	return apperrors.NewError(apperrors.ErrCodeCyclicDependency,
		fmt.Sprintf("cyclic dependency among %ss: %s", kind, strings.Join(cycle, " -> "))).
		WithContext("kind", kind).
		WithContext("cycle", cycle).
		WithContext("ids", blocked)
}

func initializationFailure(kind, id string, cause error) *apperrors.AppError {
	return apperrors.WrapError(cause, apperrors.ErrCodeInitialization,
		fmt.Sprintf("%s %q failed to initialize", kind, id)).
		WithContext("kind", kind).
		WithContext("id", id)
}

func dependencyNotReady(kind, id, dependency string, state State) *apperrors.AppError {
	return apperrors.NewError(apperrors.ErrCodeInitialization,
		fmt.Sprintf("%s %q cannot initialize: dependency %q is %s", kind, id, dependency, state)).
		WithContext("kind", kind).
		WithContext("id", id).
		WithContext("dependency", dependency)
}

func destructionFailure(kind, id string, cause error) *apperrors.AppError {
	return apperrors.WrapError(cause, apperrors.ErrCodeDestruction,
		fmt.Sprintf("%s %q failed to destroy", kind, id)).
		WithContext("kind", kind).
		WithContext("id", id)
}
