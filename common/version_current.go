package common

// CurrentVersion represents the current build version.
// It is the single source of the version number.
var CurrentVersion = Version{
	Major:  0,
	Minor:  1,
	Patch:  0,
	Suffix: "dev",
}
