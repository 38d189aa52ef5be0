// Command caa-audit audits Cover Art Archive items on archive.org against a
// MusicBrainz catalog snapshot.
package main

func main() {
	Execute()
}
