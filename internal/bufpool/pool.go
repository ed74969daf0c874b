// Copyright (C) 2020 Markus L. Noga
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

// Package bufpool pools fixed-size float64 buffers to reduce allocation
// overhead in the bad-pixel stage, which stages image rows through pooled
// row-sized buffers.
package bufpool

import "sync"

var pools = struct {
	sync.RWMutex
	m map[int]*sync.Pool
}{m: make(map[int]*sync.Pool)}

func sizedPool(size int) *sync.Pool {
	pools.RLock()
	pool := pools.m[size]
	pools.RUnlock()
	if pool == nil {
		pool = &sync.Pool{
			New: func() interface{} {
				return make([]float64, size)
			},
		}
		pools.Lock()
		pools.m[size] = pool
		pools.Unlock()
	}
	return pool
}

// Get retrieves a []float64 of the given length from the pool. Contents
// are not zeroed; callers that need a clean buffer must zero it themselves.
func Get(size int) []float64 {
	return sizedPool(size).Get().([]float64)[:size]
}

// Put returns a buffer to the pool for reuse. The caller must not use buf
// after calling Put.
func Put(buf []float64) {
	sizedPool(cap(buf)).Put(buf[:cap(buf)])
}
