//go:build !tinygo

package tz

import _ "time/tzdata"
