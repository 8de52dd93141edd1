// Package folders locates patient folders inside the PMS image store.
//
// The store is organized in surname-letter buckets:
//
//	<root>/<uppercase first letter of surname>/<PatientFolder>
//
// Folder names are free-form (offices name them LastFirst, FirstLast,
// with birthdates appended, ...), so resolution is a fuzzy glob search
// with a fixed pattern priority.
package folders

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
)

// Resolver maps patient names to folders under one image root.
type Resolver struct {
	root   string
	logger *log.Logger
}

// New creates a resolver over the given image root.
func New(root string, logger *log.Logger) *Resolver {
	return &Resolver{root: root, logger: logger}
}

// Root returns the image root the resolver searches.
func (r *Resolver) Root() string {
	return r.root
}

// Find searches for an existing folder for the patient name.
// Returns found=false when no bucket or no pattern matches; that is
// not an error - the caller decides whether to create a folder.
func (r *Resolver) Find(patientName string) (dir string, found bool) {
	tokens := strings.Fields(patientName)
	if len(tokens) == 0 {
		return "", false
	}
	if len(tokens) == 1 {
		return r.findSingleName(tokens[0])
	}

	firstName := tokens[0]
	lastName := tokens[len(tokens)-1]

	bucket := filepath.Join(r.root, firstLetter(lastName))
	if _, err := os.Stat(bucket); os.IsNotExist(err) {
		r.logger.Printf("Letter folder does not exist: %s", bucket)
		return "", false
	}

	// Pattern priority: exact-ish concatenations first, then looser
	// substring matches. First pattern with any match wins.
	patterns := []string{
		lastName + firstName + "*",
		firstName + lastName + "*",
		lastName + "*",
		"*" + lastName + "*",
		"*" + firstName + "*",
	}

	for _, pattern := range patterns {
		matches := globDirs(bucket, pattern)
		if len(matches) == 0 {
			continue
		}

		best := bestMatch(matches, firstName, lastName)
		r.logger.Printf("Found existing patient folder: %s", best)
		return best, true
	}

	r.logger.Printf("No folder found for patient: %s", patientName)
	return "", false
}

// findSingleName handles mononymous patients: bucket by the name's
// first letter, loose substring match.
func (r *Resolver) findSingleName(name string) (string, bool) {
	bucket := filepath.Join(r.root, firstLetter(name))
	if _, err := os.Stat(bucket); os.IsNotExist(err) {
		return "", false
	}

	matches := globDirs(bucket, "*"+name+"*")
	if len(matches) == 0 {
		return "", false
	}

	r.logger.Printf("Found folder for single name %q: %s", name, matches[0])
	return matches[0], true
}

// Create makes a new patient folder at the bucketed location
// <root>/<letter>/<NameWithoutSpaces> and returns its path.
func (r *Resolver) Create(patientName string) (string, error) {
	tokens := strings.Fields(patientName)
	if len(tokens) == 0 {
		return "", fmt.Errorf("cannot create folder for empty patient name")
	}

	lastName := tokens[len(tokens)-1]
	dir := filepath.Join(r.root, firstLetter(lastName), strings.ReplaceAll(patientName, " ", ""))

	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create patient folder %s: %w", dir, err)
	}

	r.logger.Printf("Created new patient folder: %s", dir)
	return dir, nil
}

// FindOrCreate resolves the patient folder, creating one when no
// existing folder matches.
func (r *Resolver) FindOrCreate(patientName string) (string, error) {
	if dir, found := r.Find(patientName); found {
		return dir, nil
	}
	r.logger.Printf("Patient folder not found for: %s", patientName)
	return r.Create(patientName)
}

// bestMatch prefers a directory whose name contains both the first
// and last name (case-insensitive); otherwise the first match in
// enumeration order.
func bestMatch(dirs []string, firstName, lastName string) string {
	lowerFirst := strings.ToLower(firstName)
	lowerLast := strings.ToLower(lastName)

	for _, dir := range dirs {
		name := strings.ToLower(filepath.Base(dir))
		if strings.Contains(name, lowerFirst) && strings.Contains(name, lowerLast) {
			return dir
		}
	}
	return dirs[0]
}

// globDirs returns the directories under bucket matching pattern.
func globDirs(bucket, pattern string) []string {
	matches, err := filepath.Glob(filepath.Join(bucket, pattern))
	if err != nil {
		// Only possible with a malformed pattern; names are globbed
		// literally so treat it as no match.
		return nil
	}

	var dirs []string
	for _, m := range matches {
		if info, err := os.Stat(m); err == nil && info.IsDir() {
			dirs = append(dirs, m)
		}
	}
	return dirs
}

// firstLetter returns the uppercased first character of a name.
func firstLetter(name string) string {
	runes := []rune(name)
	return strings.ToUpper(string(runes[0]))
}
