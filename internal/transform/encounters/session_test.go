package encounters

import (
	"sync"
	"testing"
	"time"
)

func TestAgePolicy_Years(t *testing.T) {
	p := DefaultAgePolicy()
	birth := day("2000-06-15")

	if got := p.Age(birth, day("2018-06-14")); got != 17 {
		t.Errorf("expected 17 the day before the birthday, got %d", got)
	}
	if got := p.Age(birth, day("2018-06-15")); got != 18 {
		t.Errorf("expected 18 on the birthday, got %d", got)
	}
	if p.IsAdult(&birth, day("2018-06-15")) {
		t.Error("expected exactly 18 not to be above the adult threshold")
	}
	if !p.IsAdult(&birth, day("2019-06-15")) {
		t.Error("expected adult at 19")
	}
	if !p.IsPediatric(&birth, day("2014-06-14")) {
		t.Error("expected pediatric at 13")
	}
	if p.IsPediatric(&birth, day("2014-06-15")) {
		t.Error("expected not pediatric at 14")
	}
}

func TestAgePolicy_Days(t *testing.T) {
	p := AgePolicy{Unit: AgeInDays, Adult: 18, Pediatric: 14}
	birth := day("2000-01-01")

	if got := p.Age(birth, day("2000-01-11")); got != 10 {
		t.Errorf("expected 10 days, got %d", got)
	}
	if !p.IsPediatric(&birth, day("2000-01-11")) {
		t.Error("expected pediatric under 14 days")
	}
	if p.IsAdult(&birth, day("2000-01-19")) {
		t.Error("expected 18 days not to be adult")
	}
	if !p.IsAdult(&birth, day("2000-01-20")) {
		t.Error("expected adult above 18 days")
	}
}

func TestAgePolicy_UnknownBirthdate(t *testing.T) {
	p := DefaultAgePolicy()
	if !p.IsAdult(nil, time.Now()) {
		t.Error("expected unknown birthdate to count as adult")
	}
	if p.IsPediatric(nil, time.Now()) {
		t.Error("expected unknown birthdate not to count as pediatric")
	}
}

func TestAccessions_UniqueAcrossGoroutines(t *testing.T) {
	a := NewAccessions(100)

	var mu sync.Mutex
	seen := make(map[string]bool)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				n := a.Next("MPC")
				mu.Lock()
				if seen[n] {
					t.Errorf("duplicate accession %s", n)
				}
				seen[n] = true
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if len(seen) != 400 {
		t.Errorf("expected 400 accessions, got %d", len(seen))
	}
	if a.Last() != 500 {
		t.Errorf("expected last accession 500, got %d", a.Last())
	}
	if !seen["MPC-101"] || !seen["MPC-500"] {
		t.Error("expected numbering to continue after the seed")
	}
}
