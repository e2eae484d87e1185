package reranker

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/equipsearch/catalogsearch/internal/catalog"
)

func TestParseQuery_ExtractsModelNumbers(t *testing.T) {
	p := ParseQuery("mop industrial 220v modelo 1234")
	assert.Contains(t, p.ModelNumbers, "220")
	assert.Contains(t, p.ModelNumbers, "1234")
}

func TestParseQuery_DetectsMainCategory(t *testing.T) {
	p := ParseQuery("vassoura industrial")
	assert.Equal(t, catalog.CategoryVassoura, p.MainCategory)
}

func TestParseQuery_ExtractsAccessoryTermsCanonicalized(t *testing.T) {
	p := ParseQuery("discos para enceradeira")
	assert.Contains(t, p.AccessoryTerms, "disco")
}

func TestParseQuery_IntentEquipamentoWhenCategoryBeforeAccessory(t *testing.T) {
	p := ParseQuery("enceradeira com disco")
	assert.Equal(t, IntentEquipamento, p.Intent)
}

func TestParseQuery_IntentAcessorioWhenAccessoryBeforeCategory(t *testing.T) {
	p := ParseQuery("disco para enceradeira")
	assert.Equal(t, IntentAcessorio, p.Intent)
}

func TestParseQuery_IntentEquipamentoWhenOnlyCategory(t *testing.T) {
	p := ParseQuery("mop")
	assert.Equal(t, IntentEquipamento, p.Intent)
}

func TestParseQuery_IntentAcessorioWhenOnlyAccessory(t *testing.T) {
	p := ParseQuery("escova")
	assert.Equal(t, IntentAcessorio, p.Intent)
}

func TestParseQuery_IntentIndefinidoWhenNeither(t *testing.T) {
	p := ParseQuery("azul grande")
	assert.Equal(t, IntentIndefinido, p.Intent)
}

func TestClassifyDoc_UsesPersistedDocTypeVerbatim(t *testing.T) {
	doc := catalog.Document{DocType: catalog.DocTypeAcessorio, Title: "enceradeira industrial"}
	cls := ClassifyDoc(doc, nil)
	assert.Equal(t, catalog.DocTypeAcessorio, cls.DocType)
}

func TestClassifyDoc_InfersAccessoryFromText(t *testing.T) {
	doc := catalog.Document{Title: "disco para enceradeira"}
	cls := ClassifyDoc(doc, nil)
	assert.Equal(t, catalog.DocTypeAcessorio, cls.DocType)
	assert.True(t, cls.HasAccessoryTerms)
}

func TestClassifyDoc_InfersEquipamentoFromText(t *testing.T) {
	doc := catalog.Document{Title: "enceradeira industrial 220v"}
	cls := ClassifyDoc(doc, nil)
	assert.Equal(t, catalog.DocTypeEquipamento, cls.DocType)
}

func TestClassifyDoc_HasModelNumberMatch(t *testing.T) {
	doc := catalog.Document{Title: "enceradeira modelo 1234"}
	cls := ClassifyDoc(doc, []string{"1234"})
	assert.True(t, cls.HasModelNumberMatch)
}

func TestClassifyDoc_NoModelNumberMatch(t *testing.T) {
	doc := catalog.Document{Title: "enceradeira modelo 9999"}
	cls := ClassifyDoc(doc, []string{"1234"})
	assert.False(t, cls.HasModelNumberMatch)
}

func TestBuildCoreQuery_StripsAccessoryAndConnectors(t *testing.T) {
	query := "enceradeira com disco"
	p := ParseQuery(query)
	core := BuildCoreQuery(query, p)
	assert.Equal(t, "enceradeira", core)
}

func TestBuildCoreQuery_FallsBackToCategoryAndModelNumbers(t *testing.T) {
	query := "disco"
	p := ParsedQuery{
		Tokens:         []string{"disco"},
		MainCategory:   catalog.CategoryEnceradeira,
		AccessoryTerms: []string{"disco"},
		Intent:         IntentEquipamento,
	}
	core := BuildCoreQuery(query, p)
	assert.Equal(t, "enceradeira", core)
}

func TestBuildCoreQuery_NonEquipamentoIntent_ReturnsOriginal(t *testing.T) {
	query := "disco para enceradeira"
	p := ParseQuery(query)
	core := BuildCoreQuery(query, p)
	assert.Equal(t, query, core)
}
