//go:build linux || darwin

/*
 *
 * Copyright 2025 the Virtual Audio Bridge authors.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package shm

import (
	"os"

	"golang.org/x/sys/unix"
)

// mmapFile maps the file read/write and shared, so stores made by one
// process are visible to every other process mapping the same file.
func mmapFile(file *os.File, size int) ([]byte, error) {
	return unix.Mmap(int(file.Fd()), 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
}

// munmapFile releases a mapping produced by mmapFile.
func munmapFile(mem []byte) error {
	if len(mem) == 0 {
		return nil
	}
	return unix.Munmap(mem)
}

// forcePermissions makes the backing file world read/writable regardless of
// the creating process's umask.
func forcePermissions(file *os.File) error {
	return unix.Fchmod(int(file.Fd()), 0666)
}
