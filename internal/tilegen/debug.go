//go:build rasterdebug

package tilegen

// violation panics: with rasterdebug a bad rectangle is a programming error.
func violation(err error) error {
	panic(err)
}
