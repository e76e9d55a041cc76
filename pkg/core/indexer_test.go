package core

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/brdk/as-help-index/pkg/repo/fingerprint"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleTOC = `<BrHelpContent>
  <Section Id="hardware_section" Text="Hardware" File="index.html">
    <Page Id="x20di9371_page" Text="X20DI9371" File="hardware/x20di9371.html">
      <Identifiers><HelpID Value="12345"/></Identifiers>
    </Page>
  </Section>
  <Section Id="motion_section" Text="Motion" File="motion/overview.html">
    <Identifiers><HelpID Value="20000"/></Identifiers>
    <Section Id="mapp_motion_section" Text="mapp Motion" File="motion/overview.html">
      <Page Id="mc_moveabs_page" Text="MC_BR_MoveAbsolute" File="motion/mapp_motion/mc_br_moveabsolute.html">
        <Identifiers><HelpID Value="20100"/></Identifiers>
      </Page>
    </Section>
  </Section>
</BrHelpContent>`

func newTestIndexer(t *testing.T) (*Indexer, string) {
	t.Helper()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "brhelpcontent.xml"), []byte(sampleTOC), 0o600))

	ix := New(dir, filepath.Join(dir, "index.fingerprint.json"))
	require.NoError(t, ix.ParseXMLStructure())

	return ix, dir
}

func TestParseXMLStructure_MissingTOC(t *testing.T) {
	dir := t.TempDir()
	ix := New(dir, filepath.Join(dir, "index.fingerprint.json"))

	err := ix.ParseXMLStructure()
	require.ErrorIs(t, err, ErrSourceMissing)
}

func TestParseXMLStructure_MalformedEmpty(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "brhelpcontent.xml"), []byte(`<BrHelpContent/>`), 0o600))

	ix := New(dir, filepath.Join(dir, "index.fingerprint.json"))

	err := ix.ParseXMLStructure()
	require.ErrorIs(t, err, ErrSourceMalformed)
}

func TestGetPageByID(t *testing.T) {
	ix, _ := newTestIndexer(t)

	page, err := ix.GetPageByID("x20di9371_page")
	require.NoError(t, err)
	require.NotNil(t, page)
	assert.Equal(t, "X20DI9371", page.Text)

	missing, err := ix.GetPageByID("nonexistent")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestGetPageByHelpID(t *testing.T) {
	ix, _ := newTestIndexer(t)

	page, err := ix.GetPageByHelpID("12345")
	require.NoError(t, err)
	require.NotNil(t, page)
	assert.Equal(t, "X20DI9371", page.Text)

	missing, err := ix.GetPageByHelpID("99999")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestGetBreadcrumbString_NestedPage(t *testing.T) {
	ix, _ := newTestIndexer(t)

	s, err := ix.GetBreadcrumbString("mc_moveabs_page")
	require.NoError(t, err)
	assert.Equal(t, "Motion > mapp Motion > MC_BR_MoveAbsolute", s)
}

func TestGetBreadcrumb_LastElementIsPageItself(t *testing.T) {
	ix, _ := newTestIndexer(t)

	chain, err := ix.GetBreadcrumb("mc_moveabs_page")
	require.NoError(t, err)
	require.NotEmpty(t, chain)
	assert.Equal(t, "mc_moveabs_page", chain[len(chain)-1].ID)

	for i := 0; i < len(chain)-1; i++ {
		assert.Equal(t, chain[i].ID, chain[i+1].ParentID)
	}
}

func TestGetCategories_RootOrder(t *testing.T) {
	ix, _ := newTestIndexer(t)

	cats, err := ix.GetCategories()
	require.NoError(t, err)
	require.Len(t, cats, 2)
	assert.Equal(t, "hardware_section", cats[0].ID)
	assert.Equal(t, "motion_section", cats[1].ID)
}

func TestAllPages_DocumentOrder(t *testing.T) {
	ix, _ := newTestIndexer(t)

	pages, err := ix.AllPages()
	require.NoError(t, err)
	require.Len(t, pages, 5)

	ids := make([]string, len(pages))
	for i, p := range pages {
		ids[i] = p.ID
	}

	assert.Equal(t, []string{
		"hardware_section", "x20di9371_page",
		"motion_section", "mapp_motion_section", "mc_moveabs_page",
	}, ids)
}

func TestAllPages_IncludesChildrenOfNonSectionPages(t *testing.T) {
	const toc = `<BrHelpContent>
  <Page Id="leaf_with_children" Text="Leaf" File="leaf.html">
    <Page Id="nested_under_leaf" Text="Nested" File="leaf/nested.html"/>
  </Page>
</BrHelpContent>`

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "brhelpcontent.xml"), []byte(toc), 0o600))

	ix := New(dir, filepath.Join(dir, "index.fingerprint.json"))
	require.NoError(t, ix.ParseXMLStructure())

	pages, err := ix.AllPages()
	require.NoError(t, err)

	ids := make([]string, len(pages))
	for i, p := range pages {
		ids[i] = p.ID
	}

	assert.Contains(t, ids, "nested_under_leaf", "a non-section page's children must still be indexed")
}

func TestAllPages_NotReadyBeforeParse(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "brhelpcontent.xml"), []byte(sampleTOC), 0o600))

	ix := New(dir, filepath.Join(dir, "index.fingerprint.json"))

	_, err := ix.AllPages()
	require.ErrorIs(t, err, ErrNotReady)
}

func TestBrowse_SectionChildren(t *testing.T) {
	ix, _ := newTestIndexer(t)

	children, err := ix.Browse("motion_section")
	require.NoError(t, err)
	require.Len(t, children, 1)
	assert.Equal(t, "mapp_motion_section", children[0].ID)
}

func TestBrowse_NonSectionReturnsErrNotBrowsable(t *testing.T) {
	ix, _ := newTestIndexer(t)

	_, err := ix.Browse("x20di9371_page")
	require.ErrorIs(t, err, ErrNotBrowsable)
}

func TestBrowse_UnknownSectionNotFound(t *testing.T) {
	ix, _ := newTestIndexer(t)

	children, err := ix.Browse("nonexistent")
	require.NoError(t, err)
	assert.Nil(t, children)
}

func TestLookups_NotReadyBeforeParse(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "brhelpcontent.xml"), []byte(sampleTOC), 0o600))

	ix := New(dir, filepath.Join(dir, "index.fingerprint.json"))

	_, err := ix.GetPageByID("x20di9371_page")
	require.ErrorIs(t, err, ErrNotReady)
}

func TestLookups_NotReadyAfterClose(t *testing.T) {
	ix, _ := newTestIndexer(t)

	ix.Close()
	ix.Close() // idempotent

	_, err := ix.GetPageByID("x20di9371_page")
	require.ErrorIs(t, err, ErrNotReady)
}

func TestDuplicateHelpID_LastWriteWinsAndLogged(t *testing.T) {
	const dupTOC = `<BrHelpContent>
  <Section Id="a" Text="A" File="a.html"><Identifiers><HelpID Value="1"/></Identifiers></Section>
  <Section Id="b" Text="B" File="b.html"><Identifiers><HelpID Value="1"/></Identifiers></Section>
</BrHelpContent>`

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "brhelpcontent.xml"), []byte(dupTOC), 0o600))

	ix := New(dir, filepath.Join(dir, "index.fingerprint.json"))
	require.NoError(t, ix.ParseXMLStructure())

	page, err := ix.GetPageByHelpID("1")
	require.NoError(t, err)
	require.NotNil(t, page)
	assert.Equal(t, "b", page.ID, "last write wins on HelpID collision")

	require.Len(t, ix.Collisions(), 1)
	assert.Equal(t, Collision{HelpID: "1", DroppedPageID: "a", KeptPageID: "b"}, ix.Collisions()[0])
}

func TestNeedsReindex_TrueBeforeAnyBuild(t *testing.T) {
	ix, _ := newTestIndexer(t)

	assert.True(t, ix.NeedsReindex(), "no fingerprint sidecar has ever been written")
}

func TestNeedsReindex_FalseAfterMatchingFingerprintWritten(t *testing.T) {
	ix, dir := newTestIndexer(t)

	fp, err := fingerprint.Compute(ix.TOCPath(), dir)
	require.NoError(t, err)

	sidecarPath := filepath.Join(dir, "index.fingerprint.json")
	require.NoError(t, fingerprint.Save(sidecarPath, fingerprint.Stored{
		SchemaVersion: fingerprint.SchemaVersion,
		SourceDigest:  fp.Digest,
		SourceMtime:   fp.Mtime,
	}))

	assert.False(t, ix.NeedsReindex())
}

func TestNeedsReindex_TrueAfterTOCChanges(t *testing.T) {
	ix, dir := newTestIndexer(t)

	fp, err := fingerprint.Compute(ix.TOCPath(), dir)
	require.NoError(t, err)

	sidecarPath := filepath.Join(dir, "index.fingerprint.json")
	require.NoError(t, fingerprint.Save(sidecarPath, fingerprint.Stored{
		SchemaVersion: fingerprint.SchemaVersion,
		SourceDigest:  fp.Digest,
		SourceMtime:   fp.Mtime,
	}))
	require.False(t, ix.NeedsReindex())

	require.NoError(t, os.WriteFile(filepath.Join(dir, "brhelpcontent.xml"), []byte(sampleTOC+"\n"), 0o600))

	assert.True(t, ix.NeedsReindex())
}

func TestParse_Idempotent_EqualGraphs(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "brhelpcontent.xml"), []byte(sampleTOC), 0o600))

	ix1 := New(dir, filepath.Join(dir, "fp.json"))
	require.NoError(t, ix1.ParseXMLStructure())

	ix2 := New(dir, filepath.Join(dir, "fp.json"))
	require.NoError(t, ix2.ParseXMLStructure())

	cats1, err := ix1.GetCategories()
	require.NoError(t, err)

	cats2, err := ix2.GetCategories()
	require.NoError(t, err)

	require.Len(t, cats2, len(cats1))

	for i := range cats1 {
		assert.Equal(t, *cats1[i], *cats2[i])
	}
}
