package domain

import "errors"

// PasswordHistorySize es la cantidad de credenciales previas que se recuerdan.
const PasswordHistorySize = 3

var ErrPasswordReused = errors.New("password previously used")

// HashMatcher compara un password en claro contra un hash almacenado.
type HashMatcher func(hash, raw string) bool

// CheckPasswordReuse falla si el candidato coincide con alguna entrada del historial.
// Los hashes llevan salt, por eso se compara con matches y no por igualdad.
func CheckPasswordReuse(history []string, candidate string, matches HashMatcher) error {
	for _, hash := range history {
		if hash == "" {
			continue
		}
		if matches(hash, candidate) {
			return ErrPasswordReused
		}
	}
	return nil
}

// InsertPasswordHistory agrega hash al final y descarta las entradas mas viejas
// cuando el historial esta lleno. Devuelve un slice nuevo.
func InsertPasswordHistory(history []string, hash string) []string {
	start := 0
	if len(history) >= PasswordHistorySize {
		start = len(history) - PasswordHistorySize + 1
	}
	next := make([]string, 0, PasswordHistorySize)
	next = append(next, history[start:]...)
	return append(next, hash)
}
