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

package config

const (
	ConfigDir = ".go-ubx"
	ConfigFile = "config"
	SessionDBFile = "sessions.db"
	DefaultDevice = "/dev/ttyACM0"
	DefaultBaud = 9600
	DefaultOutput = "output.ubx.gz"
	// DefaultMaxPayloadSize bounds the declared payload length a frame may
	// carry before the scanner treats the sync match as a false positive.
	// The u16 length field allows up to 65535 but no standard UBX message
	// comes close to that.
	DefaultMaxPayloadSize = 8192
	DefaultApiAddress = "127.0.0.1"
	DefaultApiPort = 8082
	DefaultLogLevel = "info"
)
