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

package helpers

import (
	"fmt"
	"slices"
	"strings"

	"github.com/mutelight/mutelight/pkg/indicator"
	"github.com/rs/zerolog/log"
	"go.bug.st/serial"
	"go.bug.st/serial/enumerator"
)

// SerialPort describes one port found on the system.
type SerialPort struct {
	Path    string
	Product string
	VID     string
	PID     string
	USB     bool
}

func (p SerialPort) String() string {
	if !p.USB {
		return p.Path
	}
	desc := fmt.Sprintf("%s (USB %s:%s", p.Path, strings.ToLower(p.VID), strings.ToLower(p.PID))
	if p.Product != "" {
		desc += " " + p.Product
	}
	return desc + ")"
}

var (
	detailedPortsList = enumerator.GetDetailedPortsList
	portsList         = serial.GetPortsList
)

// GetSerialDeviceList returns every serial port on the system sorted by
// path. USB details are filled in when the platform can report them.
func GetSerialDeviceList() ([]SerialPort, error) {
	details, err := detailedPortsList()
	if err == nil {
		ports := make([]SerialPort, 0, len(details))
		for _, d := range details {
			ports = append(ports, SerialPort{
				Path:    d.Name,
				Product: d.Product,
				VID:     d.VID,
				PID:     d.PID,
				USB:     d.IsUSB,
			})
		}
		sortPorts(ports)
		return ports, nil
	}
	log.Debug().Err(err).Msg("detailed serial port listing failed, falling back")

	names, err := portsList()
	if err != nil {
		return nil, fmt.Errorf("failed to get serial ports list: %w", err)
	}
	ports := make([]SerialPort, 0, len(names))
	for _, name := range names {
		ports = append(ports, SerialPort{Path: name})
	}
	sortPorts(ports)
	return ports, nil
}

func sortPorts(ports []SerialPort) {
	slices.SortFunc(ports, func(a, b SerialPort) int {
		return strings.Compare(a.Path, b.Path)
	})
}

// PortChoices lists the values accepted for indicator.port: the
// disconnected sentinel first, then each port path.
func PortChoices(ports []SerialPort) []string {
	choices := make([]string, 0, len(ports)+1)
	choices = append(choices, indicator.DisconnectedPort)
	for _, p := range ports {
		choices = append(choices, p.Path)
	}
	return choices
}
