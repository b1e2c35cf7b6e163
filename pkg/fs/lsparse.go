package fs

import (
	"fmt"
	"regexp"
	"strconv"
	"time"
)

// The device offers no structured stat call; all remote metadata is scraped
// from `ls -la` text. One line is one entry: type marker, permission bits,
// an optional link count, user, group, per-type middle fields, a
// minute-resolution timestamp and the name. The middle fields differ per
// type marker, so the grammar is a composed pattern per marker sharing
// common fragments, selected by the first byte of the line.
const (
	lsPerms = `[-r][-w][-xsS][-r][-w][-xsS][-r][-w][-xtT]`
	lsOwner = ` +(?:[0-9]+ +)?[^ ]+ +[^ ]+ +`
	lsStamp = `(?P<mtime>[0-9]{4}-[0-9]{2}-[0-9]{2} [0-9]{2}:[0-9]{2}) `
	lsName  = `(?P<name>.*)`

	lsTimeLayout = "2006-01-02 15:04"
)

// Symlink lines capture no name: the listing cannot separate a link's name
// from its target, so those entries surface with an empty Name.
var lsGrammar = map[byte]*regexp.Regexp{
	'-': regexp.MustCompile(`^-` + lsPerms + lsOwner + `(?P<size>[0-9]+) +` + lsStamp + lsName + `$`),
	'b': regexp.MustCompile(`^b` + lsPerms + lsOwner + `[^ ]+ +[^ ]+ +` + lsStamp + lsName + `$`),
	'c': regexp.MustCompile(`^c` + lsPerms + lsOwner + `[^ ]+ +[^ ]+ +` + lsStamp + lsName + `$`),
	'd': regexp.MustCompile(`^d` + lsPerms + lsOwner + `(?:[0-9]+ +)?` + lsStamp + lsName + `$`),
	'l': regexp.MustCompile(`^l` + lsPerms + lsOwner + `[0-9]+ +` + lsStamp + `.*$`),
	'p': regexp.MustCompile(`^p` + lsPerms + lsOwner + lsStamp + lsName + `$`),
	's': regexp.MustCompile(`^s` + lsPerms + lsOwner + lsStamp + lsName + `$`),
}

var lsKinds = map[byte]Kind{
	'-': KindRegular,
	'b': KindOther,
	'c': KindOther,
	'd': KindDirectory,
	'l': KindSymlink,
	'p': KindOther,
	's': KindOther,
}

var (
	lsNoSuchFile    = regexp.MustCompile(`^.*: No such file or directory$`)
	lsNotADirectory = regexp.MustCompile(`^ls: .*: Not a directory$`)
	lsTotalHeader   = regexp.MustCompile(`^total [0-9]+$`)
)

// parseListingLine turns one `ls -la` line into metadata. Error replies map
// onto the sentinel taxonomy; any other unrecognized shape is ErrProtocol.
func parseListingLine(line string) (FileMeta, error) {
	if lsNoSuchFile.MatchString(line) {
		return FileMeta{}, ErrNotExist
	}
	if lsNotADirectory.MatchString(line) {
		return FileMeta{}, ErrNotADirectory
	}
	if line == "" {
		return FileMeta{}, fmt.Errorf("%w: empty listing line", ErrProtocol)
	}
	pattern, ok := lsGrammar[line[0]]
	if !ok {
		return FileMeta{}, fmt.Errorf("%w: %q", ErrProtocol, line)
	}
	match := pattern.FindStringSubmatch(line)
	if match == nil {
		return FileMeta{}, fmt.Errorf("%w: %q", ErrProtocol, line)
	}
	meta := FileMeta{Kind: lsKinds[line[0]]}
	for i, group := range pattern.SubexpNames() {
		switch group {
		case "size":
			size, err := strconv.ParseInt(match[i], 10, 64)
			if err != nil {
				return FileMeta{}, fmt.Errorf("%w: size in %q", ErrProtocol, line)
			}
			meta.Size = size
		case "mtime":
			t, err := time.ParseInLocation(lsTimeLayout, match[i], time.Local)
			if err != nil {
				return FileMeta{}, fmt.Errorf("%w: timestamp in %q", ErrProtocol, line)
			}
			meta.ModTime = t
		case "name":
			meta.Name = match[i]
		}
	}
	meta.AccessTime = meta.ModTime
	return meta, nil
}

func isTotalHeader(line string) bool {
	return lsTotalHeader.MatchString(line)
}
