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

// Package shm implements the shared memory audio ring transport that moves
// interleaved float32 frames between two independent processes.
//
// A ring is a memory-mapped file holding a small fixed header followed by a
// contiguous frame buffer. The header carries two monotonically increasing
// frame indices; the producer and consumer coordinate exclusively through
// atomic loads and stores of those indices, so Write and Read never block,
// never allocate, and never enter the kernel. That makes both operations
// safe to call from a hard real-time audio I/O callback.
//
// Each ring supports exactly one writer and one reader. A process that wants
// duplex audio opens two rings, one per direction.
package shm
