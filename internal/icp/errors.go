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

package icp

import "errors"

// ErrInsufficientPoints is returned when either the reference or source
// star list has fewer than two points.
var ErrInsufficientPoints = errors.New("icp: fewer than two stars available to match")

// ErrSolverDegenerate is returned when the least-squares normal matrix
// B*Bt is singular, or the solved transform contains NaN.
var ErrSolverDegenerate = errors.New("icp: least-squares solve degenerate (collinear points)")
