// Mutelight
// Copyright (c) 2026 The Mutelight Contributors.
// SPDX-License-Identifier: GPL-3.0-or-later
//
// This file is part of Mutelight.
//
// Mutelight is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// Mutelight is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with Mutelight.  If not, see <http://www.gnu.org/licenses/>.

package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

var ErrInvalidConfig = errors.New("invalid config")

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("duration", validateDuration)
	v.RegisterStructValidation(validateHost, Host{})
	return v
}

// validateDuration accepts empty strings, which fall back to defaults, and
// positive Go durations.
func validateDuration(fl validator.FieldLevel) bool {
	val := fl.Field().String()
	if val == "" {
		return true
	}
	d, err := time.ParseDuration(val)
	return err == nil && d > 0
}

func validateHost(sl validator.StructLevel) {
	h, ok := sl.Current().Interface().(Host)
	if !ok {
		return
	}
	switch h.Driver {
	case DriverOBS:
		if !strings.HasPrefix(h.URL, "ws://") && !strings.HasPrefix(h.URL, "wss://") {
			sl.ReportError(h.URL, "URL", "url", "wsurl", "")
		}
	case DriverMQTT:
		if strings.Contains(h.TopicPrefix, "+") || strings.Contains(h.TopicPrefix, "#") {
			sl.ReportError(h.TopicPrefix, "TopicPrefix", "topic_prefix", "topic", "")
		}
	}
}

// Validate checks vals and returns an ErrInvalidConfig listing every bad
// field.
func Validate(vals *Values) error {
	err := validate.Struct(vals)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s failed %q (value %v)", fe.Namespace(), fe.Tag(), fe.Value()))
	}
	return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(msgs, "; "))
}
