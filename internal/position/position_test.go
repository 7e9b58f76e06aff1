package position

import (
	"reflect"
	"testing"
)

func TestClassify(t *testing.T) {
	cases := map[string]Bucket{
		"GK":                 Goalkeeper,
		"gk":                 Goalkeeper,
		"Goalkeeper":         Goalkeeper,
		"KL":                 Goalkeeper,
		"Kaleci":             Goalkeeper,
		"POR":                Goalkeeper,
		"TW":                 Goalkeeper,
		"CB":                 Defense,
		"lb":                 Defense,
		"RWB":                Defense,
		"DF":                 Defense,
		"DF,MF":              Defense,
		"Defender":           Defense,
		"Stoper":             Defense,
		"Sağ Bek":            Defense,
		"DM":                 Midfield,
		"cm":                 Midfield,
		"AM":                 Midfield,
		"MF":                 Midfield,
		"MF,FW":              Midfield,
		"FW,MF":              Forward,
		"MF,DF":              Midfield,
		"GK/DF":              Goalkeeper,
		"FW, DF":             Forward,
		",DF":                Defense,
		"??,CB":              Defense,
		"Midfielder":         Midfield,
		"Defensive Midfield": Midfield,
		"Orta Saha":          Midfield,
		"FW":                 Forward,
		"ST":                 Forward,
		"LW":                 Forward,
		"Striker":            Forward,
		"Centre-Forward":     Forward,
		"Support":            Forward,
		"Support Striker":    Forward,
		"Left Winger":        Forward,
		"Right Wing-Back":    Defense,
		"Portero":            Goalkeeper,
		"Por":                Goalkeeper,
		"":                   Forward,
		"??":                 Forward,
	}
	for tag, want := range cases {
		if got := Classify(tag); got != want {
			t.Errorf("Classify(%q) = %v, want %v", tag, got, want)
		}
	}
}

func TestBucketCodes(t *testing.T) {
	if Goalkeeper != 1 || Defense != 2 || Midfield != 3 || Forward != 4 {
		t.Fatal("bucket codes changed")
	}
	if Midfield.String() != "MID" || Bucket(9).String() != "UNK" {
		t.Errorf("String() = %q/%q", Midfield.String(), Bucket(9).String())
	}
}

func TestClassify_Idempotent(t *testing.T) {
	tags := []string{"FW,MF", "Defensive Midfield", "Stoper", "", "Support"}
	first := make([]Bucket, len(tags))
	for i, tag := range tags {
		first[i] = Classify(tag)
	}
	second := make([]Bucket, len(tags))
	for i, tag := range tags {
		second[i] = Classify(tag)
	}
	if !reflect.DeepEqual(first, second) {
		t.Errorf("Classify differs between calls: %v vs %v", first, second)
	}
}
