package apperrors

import "errors"

// ErrNotFound indicates that a requested resource could not be found.
var ErrNotFound = errors.New("resource not found")

// ErrValidation indicates that input data failed validation checks.
var ErrValidation = errors.New("validation error")

// ErrDuplicate indicates that an attempt was made to create a resource that already exists.
var ErrDuplicate = errors.New("resource already exists")

// ErrConflict indicates that an operation is not permitted given the current
// state of the target resource (e.g. posting a cancelled transaction).
var ErrConflict = errors.New("operation conflicts with current resource state")

// ErrReferenced indicates that a resource cannot be deleted because other
// records still reference it (e.g. an account with transaction lines).
var ErrReferenced = errors.New("resource is referenced by other records")

// ErrInternal indicates an unexpected internal failure.
var ErrInternal = errors.New("internal error")
