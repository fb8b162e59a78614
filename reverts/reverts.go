// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package reverts

import (
	"errors"
)

// ErrRevert is a failure caused by the caller: the call is rolled back and
// the message is reported verbatim.
type ErrRevert struct {
	message      string
	unauthorized bool
}

func New(message string) *ErrRevert {
	return &ErrRevert{
		message: message,
	}
}

// NewUnauthorized creates a revert for failed privilege checks.
func NewUnauthorized(message string) *ErrRevert {
	return &ErrRevert{
		message:      message,
		unauthorized: true,
	}
}

func (e *ErrRevert) Error() string {
	return e.message
}

// Unauthorized tells if the revert is a failed privilege check.
func (e *ErrRevert) Unauthorized() bool {
	return e.unauthorized
}

func IsRevertErr(err any) bool {
	if err == nil {
		return false
	}
	e, ok := err.(error)
	if !ok {
		return false
	}
	var ve *ErrRevert
	return errors.As(e, &ve)
}

// IsUnauthorized tells if err wraps a failed privilege check.
func IsUnauthorized(err error) bool {
	var ve *ErrRevert
	return errors.As(err, &ve) && ve.unauthorized
}
