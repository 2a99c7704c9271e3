package repository

import "errors"

// ErrDuplicate запись нарушает уникальный индекс
var ErrDuplicate = errors.New("duplicate record")
