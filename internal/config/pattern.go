package config

import "regexp"

// collectionNamePattern is the collection name grammar: lowercase
// alphanumerics, underscore, and hyphen, starting with an alphanumeric.
var collectionNamePattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]{0,63}$`)
