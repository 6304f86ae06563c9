/*
 Licensed under the Apache License, Version 2.0 (the "License");
 you may not use this file except in compliance with the License.
 You may obtain a copy of the License at

     https://www.apache.org/licenses/LICENSE-2.0

 Unless required by applicable law or agreed to in writing, software
 distributed under the License is distributed on an "AS IS" BASIS,
 WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 See the License for the specific language governing permissions and
 limitations under the License.
*/

package capture

import (
	"fmt"
)

// ErrSourceUnavailable returned when the serial device is lost mid-capture,
// e.g. the receiver was unplugged. It ends the capture loop after a
// best-effort sink flush.
type ErrSourceUnavailable struct {
	Device string
	Err error
}

func (e ErrSourceUnavailable) Error() string {
	return fmt.Sprintf("Device unavailable: %s: %s", e.Device, e.Err)
}

// ErrSinkUnavailable returned when the capture file cannot be written
type ErrSinkUnavailable struct {
	Path string
	Err error
}

func (e ErrSinkUnavailable) Error() string {
	return fmt.Sprintf("Capture file unavailable: %s: %s", e.Path, e.Err)
}
