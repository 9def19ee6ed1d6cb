package standards

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

func writeDataset(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "combined_data.csv")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing dataset: %v", err)
	}
	return path
}

const sampleCSV = `Work Product,ID,Description
Software Requirements Specification,26262-6:2018.6.4.1,Software safety requirements shall be specified.
Software Requirements Specification,SWE.1.BP1,Specify software requirements.
Software Architecture Specification,26262-6:2018.7.4.2.1.3,The architecture shall exhibit modularity.
`

func TestLoad_ParsesISOAndASPICE(t *testing.T) {
	reqs, err := Load(writeDataset(t, sampleCSV))
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if len(reqs) != 3 {
		t.Fatalf("len = %d, want 3", len(reqs))
	}

	iso := reqs[0]
	if iso.Standard != StandardISO26262 {
		t.Errorf("Standard = %q", iso.Standard)
	}
	if iso.Version != "2018" || iso.Part != 6 || iso.Clause != 6 || iso.Section != 4 || iso.Subsection != 1 {
		t.Errorf("ISO fields = %+v", iso)
	}

	aspice := reqs[1]
	if aspice.Standard != StandardASPICE {
		t.Errorf("Standard = %q", aspice.Standard)
	}
	if aspice.Part != 0 {
		t.Errorf("ASPICE row has ISO metadata: %+v", aspice)
	}

	deep := reqs[2]
	if deep.Subsection != 1 || deep.Subsubsection != 3 {
		t.Errorf("deep ISO id fields = %+v", deep)
	}
}

func TestLoad_ExpandsMultiWorkProductRows(t *testing.T) {
	csv := "Work Product,ID,Description\n" +
		"\"Software Requirements Specification\nSoftware Architecture Specification\",SWE.1.BP2,Shared requirement.\n"
	reqs, err := Load(writeDataset(t, csv))
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if len(reqs) != 2 {
		t.Fatalf("len = %d, want row expanded to 2", len(reqs))
	}
	if reqs[0].WorkProduct == reqs[1].WorkProduct {
		t.Error("expanded rows share a work product")
	}
	if reqs[0].ID != reqs[1].ID {
		t.Error("expanded rows should share the ID")
	}
}

func TestLoad_MissingColumns(t *testing.T) {
	_, err := Load(writeDataset(t, "ID,Description\nx,y\n"))
	if err == nil {
		t.Fatal("Load() accepted dataset without Work Product column")
	}
}

func TestLoad_ShortRowRejected(t *testing.T) {
	csv := "Work Product,ID,Description\n" +
		"onlyonefield\n"
	_, err := Load(writeDataset(t, csv))
	if err == nil {
		t.Fatal("Load() accepted a row missing required columns")
	}
	if !strings.Contains(err.Error(), "row 2") {
		t.Errorf("error does not name the row: %v", err)
	}
}

func TestLoad_CorruptRowIsAnError(t *testing.T) {
	// A parse error mid-file must surface, not silently truncate the
	// dataset at the corrupt row.
	csv := "Work Product,ID,Description\n" +
		"WP,SWE.1.BP1,First.\n" +
		"WP,br\"oken,Second.\n" +
		"WP,SWE.1.BP2,Third.\n"
	if _, err := Load(writeDataset(t, csv)); err == nil {
		t.Fatal("Load() swallowed a CSV parse error")
	}
}

func TestLoad_MalformedISOID(t *testing.T) {
	_, err := Load(writeDataset(t, "Work Product,ID,Description\nWP,26262-notanumber,Desc\n"))
	if err == nil {
		t.Fatal("Load() accepted malformed ISO id")
	}
}

func TestWorkProducts_DistinctInOrder(t *testing.T) {
	reqs, err := Load(writeDataset(t, sampleCSV))
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	got := WorkProducts(reqs)
	want := []string{"Software Requirements Specification", "Software Architecture Specification"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("WorkProducts() = %v, want %v", got, want)
	}
}

func TestForWorkProductAndRestrict(t *testing.T) {
	reqs, err := Load(writeDataset(t, sampleCSV))
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	srs := ForWorkProduct(reqs, "Software Requirements Specification")
	if len(srs) != 2 {
		t.Errorf("ForWorkProduct = %d rows, want 2", len(srs))
	}

	restricted := Restrict(reqs, []string{"Software Architecture Specification"})
	if len(restricted) != 1 {
		t.Errorf("Restrict = %d rows, want 1", len(restricted))
	}
}
