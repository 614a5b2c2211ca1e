package extraction

import (
	"errors"
	"testing"
)

func TestParseResultBareArray(t *testing.T) {
	content := `[{"track_number":1,"title":"Blue in Green","duration":"5:37"},{"track_number":2,"title":"So What"}]`

	result, err := ParseResult(content)
	if err != nil {
		t.Fatalf("ParseResult returned error: %v", err)
	}
	if len(result.Songs) != 2 {
		t.Fatalf("expected 2 songs, got %d", len(result.Songs))
	}
	if result.Album != nil {
		t.Errorf("expected no album metadata for bare array response")
	}
	if result.Songs[0].Title != "Blue in Green" || result.Songs[0].Duration != "5:37" {
		t.Errorf("first song decoded wrong: %+v", result.Songs[0])
	}
}

func TestParseResultProseAndCodeFence(t *testing.T) {
	content := "Here is the extracted track listing:\n```json\n[{\"track_number\":1,\"title\":\"Kind of Blue\"}]\n```\nLet me know if you need anything else."

	result, err := ParseResult(content)
	if err != nil {
		t.Fatalf("ParseResult returned error: %v", err)
	}
	if len(result.Songs) != 1 {
		t.Fatalf("expected 1 song, got %d", len(result.Songs))
	}
	if result.Songs[0].Title != "Kind of Blue" {
		t.Errorf("unexpected title %q", result.Songs[0].Title)
	}
}

func TestParseResultMetadataEnvelope(t *testing.T) {
	content := `{"album":{"title":"Abbey Road","artist":"The Beatles","year":1969},"songs":[{"track_number":1,"title":"Come Together","artist":"The Beatles"}]}`

	result, err := ParseResult(content)
	if err != nil {
		t.Fatalf("ParseResult returned error: %v", err)
	}
	if result.Album == nil {
		t.Fatal("expected album metadata")
	}
	if result.Album.Title != "Abbey Road" || result.Album.Year != 1969 {
		t.Errorf("album decoded wrong: %+v", result.Album)
	}
	if len(result.Songs) != 1 || result.Songs[0].Artist != "The Beatles" {
		t.Errorf("songs decoded wrong: %+v", result.Songs)
	}
}

func TestParseResultDropsInvalidSongs(t *testing.T) {
	content := `[{"track_number":1,"title":"Keeper"},{"track_number":0,"title":"Bad Track"},{"track_number":3,"title":"   "}]`

	result, err := ParseResult(content)
	if err != nil {
		t.Fatalf("ParseResult returned error: %v", err)
	}
	if len(result.Songs) != 1 || result.Songs[0].Title != "Keeper" {
		t.Errorf("expected only the valid song, got %+v", result.Songs)
	}
}

func TestParseResultEmptyArray(t *testing.T) {
	result, err := ParseResult("[]")
	if err != nil {
		t.Fatalf("ParseResult returned error: %v", err)
	}
	if !result.Empty() {
		t.Errorf("expected empty result")
	}
}

func TestParseResultNoJSON(t *testing.T) {
	_, err := ParseResult("I could not read any songs from this image.")
	if err == nil {
		t.Fatal("expected error for prose-only response")
	}

	var ee *Error
	if !errors.As(err, &ee) {
		t.Fatalf("expected *Error, got %T", err)
	}
	if ee.Kind != KindMalformed {
		t.Errorf("expected malformed kind, got %v", ee.Kind)
	}
	if ee.Retryable() {
		t.Errorf("malformed responses must not be retryable")
	}
}

func TestParseResultSkipsBrokenCandidates(t *testing.T) {
	// 真正载荷前的多余括号不能让解析中断
	content := `Track [1] looks smudged. [{"track_number":1,"title":"Real Song"}]`

	result, err := ParseResult(content)
	if err != nil {
		t.Fatalf("ParseResult returned error: %v", err)
	}
	if len(result.Songs) != 1 || result.Songs[0].Title != "Real Song" {
		t.Errorf("expected the real payload to decode, got %+v", result.Songs)
	}
}
