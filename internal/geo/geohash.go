package geo

import "strings"

// BucketPrecision is the geohash precision used for coarse location bucketing
// in feed context signals. Five characters is roughly a 5 km cell, coarse
// enough to group users by area without tracking exact positions.
const BucketPrecision = 5

// base32 is the geohash base32 alphabet (excludes a, i, l, o).
const base32 = "0123456789bcdefghjkmnpqrstuvwxyz"

// EncodeBucket encodes latitude and longitude into a geohash cell identifier
// at BucketPrecision. Used as an auxiliary context signal so cached feed
// payloads can be grouped by area rather than exact coordinates.
func EncodeBucket(lat, lng float64) string {
	return Encode(lat, lng, BucketPrecision)
}

// Encode encodes latitude and longitude into a geohash string with the given
// precision using the standard interleaved base32 algorithm.
func Encode(lat, lng float64, precision int) string {
	if precision < 1 {
		precision = BucketPrecision
	}

	latRange := [2]float64{-90.0, 90.0}
	lngRange := [2]float64{-180.0, 180.0}

	var hash strings.Builder
	hash.Grow(precision)

	bits := 0
	var ch uint

	even := true
	for hash.Len() < precision {
		if even {
			// Longitude bit
			mid := (lngRange[0] + lngRange[1]) / 2
			if lng > mid {
				ch |= (1 << (4 - bits))
				lngRange[0] = mid
			} else {
				lngRange[1] = mid
			}
		} else {
			// Latitude bit
			mid := (latRange[0] + latRange[1]) / 2
			if lat > mid {
				ch |= (1 << (4 - bits))
				latRange[0] = mid
			} else {
				latRange[1] = mid
			}
		}

		even = !even
		bits++

		if bits == 5 {
			hash.WriteByte(base32[ch])
			bits = 0
			ch = 0
		}
	}

	return hash.String()
}
