package reportsvc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	posmodels "daily_ops/internal/api/pos/models"
)

func buildIndex(nodes ...CategoryNode) (map[string]CategoryNode, map[string]CategoryNode) {
	byName := map[string]CategoryNode{}
	byID := map[string]CategoryNode{}
	for _, n := range nodes {
		byName[categoryNameKey(n.Name)] = n
		if n.ID != "" {
			byID[n.ID] = n
		}
	}
	return byName, byID
}

func mainOf(t *testing.T, r CategoryResolution) string {
	t.Helper()
	require.NotNil(t, r.MainCategory)
	return *r.MainCategory
}

func TestResolveMainCategoryFlatFallback(t *testing.T) {
	r := ResolveMainCategory("Specials", nil, nil, 0)
	assert.Equal(t, "Specials", r.Category)
	assert.Equal(t, "Specials", mainOf(t, r))
}

func TestResolveMainCategoryEmptyLeaf(t *testing.T) {
	r := ResolveMainCategory("  ", nil, nil, 0)
	assert.Nil(t, r.MainCategory)
	assert.Equal(t, "", r.Category)
}

func TestResolveMainCategoryRootItself(t *testing.T) {
	byName, byID := buildIndex(CategoryNode{ID: "1", Name: "Keuken", Level: 1})
	r := ResolveMainCategory("keuken ", byName, byID, 0)
	assert.Equal(t, "Keuken", mainOf(t, r))
	assert.Equal(t, "keuken", r.Category)
}

func TestResolveMainCategoryLevelOneWithParentRef(t *testing.T) {
	byName, byID := buildIndex(
		CategoryNode{ID: "1", Name: "Bar", ParentID: "99", Level: 1},
	)
	r := ResolveMainCategory("Bar", byName, byID, 0)
	assert.Equal(t, "Bar", mainOf(t, r))
}

func TestResolveMainCategoryWalksChain(t *testing.T) {
	byName, byID := buildIndex(
		CategoryNode{ID: "1", Name: "Keuken"},
		CategoryNode{ID: "2", Name: "Hoofdgerecht", ParentID: "1"},
		CategoryNode{ID: "3", Name: "Vlees", ParentName: "Hoofdgerecht"},
		CategoryNode{ID: "4", Name: "Biefstuk", ParentName: "vlees", ParentID: "3"},
	)
	r := ResolveMainCategory("Biefstuk", byName, byID, 0)
	assert.Equal(t, "Keuken", mainOf(t, r))
	assert.Equal(t, "Biefstuk", r.Category)
}

func TestResolveMainCategoryPrefersNameOverID(t *testing.T) {
	byName, byID := buildIndex(
		CategoryNode{ID: "1", Name: "Bar"},
		CategoryNode{ID: "2", Name: "Keuken"},
		CategoryNode{ID: "3", Name: "Bier", ParentName: "Bar", ParentID: "2"},
	)
	r := ResolveMainCategory("Bier", byName, byID, 0)
	assert.Equal(t, "Bar", mainOf(t, r))
}

func TestResolveMainCategoryMissingParent(t *testing.T) {
	byName, byID := buildIndex(
		CategoryNode{ID: "3", Name: "Wijn", ParentName: "Dranken", ParentID: "404"},
	)
	r := ResolveMainCategory("Wijn", byName, byID, 0)
	assert.Equal(t, "Dranken", mainOf(t, r))

	// chỉ có parent id không tìm thấy: trả root candidate (chính node)
	byName, byID = buildIndex(CategoryNode{ID: "5", Name: "Fris", ParentID: "404"})
	r = ResolveMainCategory("Fris", byName, byID, 0)
	assert.Equal(t, "Fris", mainOf(t, r))
}

func TestResolveMainCategoryCycleTerminates(t *testing.T) {
	byName, byID := buildIndex(
		CategoryNode{ID: "a", Name: "A", ParentName: "B"},
		CategoryNode{ID: "b", Name: "B", ParentName: "A"},
	)
	r := ResolveMainCategory("A", byName, byID, 0)
	assert.Equal(t, "B", mainOf(t, r))

	// kết quả ổn định giữa các lần gọi
	again := ResolveMainCategory("A", byName, byID, 0)
	assert.Equal(t, *r.MainCategory, *again.MainCategory)

	// self-loop
	byName, byID = buildIndex(CategoryNode{ID: "s", Name: "Self", ParentID: "s"})
	r = ResolveMainCategory("Self", byName, byID, 0)
	assert.Equal(t, "Self", mainOf(t, r))
}

func TestResolveMainCategoryDepthBound(t *testing.T) {
	nodes := []CategoryNode{{ID: "0", Name: "C0"}}
	for i := 1; i <= 15; i++ {
		nodes = append(nodes, CategoryNode{
			ID:       string(rune('a' + i)),
			Name:     "C" + string(rune('a'+i)),
			ParentID: nodes[i-1].ID,
		})
	}
	byName, byID := buildIndex(nodes...)
	leaf := nodes[15].Name

	r := ResolveMainCategory(leaf, byName, byID, 3)
	// 3 bước: leaf → 14 → 13 → 12
	assert.Equal(t, nodes[12].Name, mainOf(t, r))

	r = ResolveMainCategory(leaf, byName, byID, 20)
	assert.Equal(t, "C0", mainOf(t, r))
}

func TestCategoryCatalogPerLocation(t *testing.T) {
	docs := []posmodels.PosCategory{
		{"groupId": 1, "groupName": "Bar", "groupLevel": 1, "locationId": "L1"},
		{"GroupId": "2", "GroupName": "Bier", "ParentGroupId": "1", "locationId": "L1"},
		{"groupId": "7", "groupName": "Drinks", "locationId": "L2"},
		{"groupId": "8", "groupName": "Bier", "parentGroupName": "Drinks", "locationId": "L2"},
		{"groupName": ""},
	}
	catalog := NewCategoryCatalog(docs, 0)
	assert.NotEmpty(t, catalog.Version)
	assert.Equal(t, 2, catalog.Locations())
	assert.Equal(t, 2, catalog.For("L1").Len())
	assert.Equal(t, 0, catalog.For("L3").Len())

	assert.Equal(t, "Bar", mainOf(t, catalog.For("L1").Resolve("Bier")))
	assert.Equal(t, "Drinks", mainOf(t, catalog.For("L2").Resolve("bier")))

	// location không có danh mục → fallback phẳng
	assert.Nil(t, catalog.For("L3"))
	assert.Equal(t, "Bier", mainOf(t, catalog.For("L3").Resolve("Bier")))
}

func TestNormalizeCategoryRootZeroParent(t *testing.T) {
	n := NormalizeCategory(posmodels.PosCategory{"id": "9", "name": "Keuken", "parentId": 0})
	assert.False(t, n.HasParent())
	assert.Equal(t, "9", n.ID)
}
