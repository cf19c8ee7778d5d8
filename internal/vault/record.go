package vault

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"
)

// TombstoneText replaces the body of a deleted message. The anchor stays in
// place so the conversation around it still reads coherently.
const TombstoneText = "*[message deleted]*"

const (
	anchorPrefix = "<!--rec "
	anchorSuffix = "-->"
)

// Attachment is a reference link to an uploaded file. Only the link is
// archived, never the binary itself.
type Attachment struct {
	URL  string `json:"url"`
	Name string `json:"name"`
}

// Record is one archived message. Anchor is derived from the platform
// message id alone, so it is globally unique without coordination.
type Record struct {
	Anchor      string
	GuildID     string
	ChannelID   string
	Author      string
	Timestamp   time.Time // platform-supplied, authoritative, UTC
	Body        string
	Attachments []Attachment
	Edited      bool
	Deleted     bool
	History     []string // prior bodies, oldest first
}

// anchorHeader is the machine-readable half of a record, hidden in an HTML
// comment so rendered Markdown shows only the human part.
type anchorHeader struct {
	ID      string   `json:"id"`
	Guild   string   `json:"guild,omitempty"`
	Channel string   `json:"channel,omitempty"`
	TS      string   `json:"ts"`
	Edited  bool     `json:"edited,omitempty"`
	Deleted bool     `json:"deleted,omitempty"`
	Prior   []string `json:"prior,omitempty"`
}

var attachmentLine = regexp.MustCompile(`^- Attachment: \[(.*)\]\((.*)\)$`)

// Encode renders a record as a self-delimited Markdown block. The heading
// timestamp is shown in loc for human readers; the authoritative UTC instant
// lives in the anchor header.
func Encode(r Record, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}

	hdr := anchorHeader{
		ID:      r.Anchor,
		Guild:   r.GuildID,
		Channel: r.ChannelID,
		TS:      r.Timestamp.UTC().Format(time.RFC3339Nano),
		Edited:  r.Edited,
		Deleted: r.Deleted,
		Prior:   r.History,
	}
	raw, _ := json.Marshal(hdr)

	var b strings.Builder
	b.WriteString(anchorPrefix)
	b.Write(raw)
	b.WriteString(anchorSuffix)
	b.WriteString("\n")

	fmt.Fprintf(&b, "### %s @%s\n", r.Timestamp.In(loc).Format("2006-01-02 15:04"), r.Author)

	body := normalizeBody(r.Body)
	if body != "" {
		b.WriteString(body)
		b.WriteString("\n")
	}
	for _, a := range r.Attachments {
		fmt.Fprintf(&b, "- Attachment: [%s](%s)\n", a.Name, a.URL)
	}
	b.WriteString("\n")
	return b.String()
}

// DecodeAll scans text (a whole archive file) for anchor markers and
// reconstructs the records in order. Anything before the first anchor, such
// as the file's frontmatter preamble, is skipped. Hand-edits to body text
// survive; a malformed or duplicated anchor fails with CorruptRecordError.
func DecodeAll(path string, data []byte) ([]Record, error) {
	lines := strings.Split(string(data), "\n")

	var records []Record
	seen := map[string]bool{}

	i := 0
	for i < len(lines) {
		line := lines[i]
		if !strings.HasPrefix(line, anchorPrefix) {
			i++
			continue
		}

		hdr, err := parseAnchor(path, i+1, line)
		if err != nil {
			return nil, err
		}
		if seen[hdr.ID] {
			return nil, &CorruptRecordError{Path: path, Line: i + 1, Reason: fmt.Sprintf("duplicated anchor id %q", hdr.ID)}
		}
		seen[hdr.ID] = true

		ts, err := time.Parse(time.RFC3339Nano, hdr.TS)
		if err != nil {
			return nil, &CorruptRecordError{Path: path, Line: i + 1, Reason: fmt.Sprintf("bad timestamp %q", hdr.TS)}
		}

		rec := Record{
			Anchor:    hdr.ID,
			GuildID:   hdr.Guild,
			ChannelID: hdr.Channel,
			Timestamp: ts.UTC(),
			Edited:    hdr.Edited,
			Deleted:   hdr.Deleted,
			History:   hdr.Prior,
		}
		i++

		// Heading line carries the author. Tolerate its absence: a hand
		// edit that mangles the heading costs the author name, not the
		// record.
		if i < len(lines) && strings.HasPrefix(lines[i], "### ") {
			if at := strings.Index(lines[i], " @"); at >= 0 {
				rec.Author = lines[i][at+2:]
			}
			i++
		}

		var bodyLines []string
		for i < len(lines) && !strings.HasPrefix(lines[i], anchorPrefix) {
			if m := attachmentLine.FindStringSubmatch(lines[i]); m != nil {
				rec.Attachments = append(rec.Attachments, Attachment{Name: m[1], URL: m[2]})
			} else {
				bodyLines = append(bodyLines, lines[i])
			}
			i++
		}
		rec.Body = normalizeBody(strings.Join(bodyLines, "\n"))

		records = append(records, rec)
	}

	return records, nil
}

// scanAnchors parses only the machine headers of a file, cheap enough for
// listing stats without materializing full records.
func scanAnchors(path string, data []byte) ([]anchorHeader, error) {
	lines := strings.Split(string(data), "\n")
	var headers []anchorHeader
	seen := map[string]bool{}
	for i, line := range lines {
		if !strings.HasPrefix(line, anchorPrefix) {
			continue
		}
		hdr, err := parseAnchor(path, i+1, line)
		if err != nil {
			return nil, err
		}
		if seen[hdr.ID] {
			return nil, &CorruptRecordError{Path: path, Line: i + 1, Reason: fmt.Sprintf("duplicated anchor id %q", hdr.ID)}
		}
		seen[hdr.ID] = true
		headers = append(headers, hdr)
	}
	return headers, nil
}

func parseAnchor(path string, line int, s string) (anchorHeader, error) {
	inner, ok := strings.CutSuffix(strings.TrimPrefix(s, anchorPrefix), anchorSuffix)
	if !ok {
		return anchorHeader{}, &CorruptRecordError{Path: path, Line: line, Reason: "unterminated anchor marker"}
	}
	var hdr anchorHeader
	if err := json.Unmarshal([]byte(inner), &hdr); err != nil {
		return anchorHeader{}, &CorruptRecordError{Path: path, Line: line, Reason: fmt.Sprintf("unreadable anchor header: %v", err)}
	}
	if hdr.ID == "" {
		return anchorHeader{}, &CorruptRecordError{Path: path, Line: line, Reason: "anchor id is missing"}
	}
	if hdr.TS == "" {
		return anchorHeader{}, &CorruptRecordError{Path: path, Line: line, Reason: "anchor timestamp is missing"}
	}
	return hdr, nil
}

// normalizeBody trims trailing whitespace per line and surrounding blank
// lines so encode/decode round-trips regardless of editor habits.
func normalizeBody(body string) string {
	lines := strings.Split(body, "\n")
	for i := range lines {
		lines[i] = strings.TrimRight(lines[i], " \t\r")
	}
	return strings.Trim(strings.Join(lines, "\n"), "\n")
}
