package model

import (
	"strings"

	"github.com/beevik/etree"
)

type standardCategory struct {
	name      string
	color     string
	customTag string
	blocks    string
}

// Default toolbox categories shipped with the block library.
var standardCategories = []standardCategory{
	{name: "Logic", color: "#5b80a5", blocks: `<xml>
  <block type="controls_if"/>
  <block type="logic_compare"/>
  <block type="logic_operation"/>
  <block type="logic_negate"/>
  <block type="logic_boolean"/>
  <block type="logic_null"/>
  <block type="logic_ternary"/>
</xml>`},
	{name: "Loops", color: "#5ba55b", blocks: `<xml>
  <block type="controls_repeat_ext">
    <value name="TIMES"><shadow type="math_number"><field name="NUM">10</field></shadow></value>
  </block>
  <block type="controls_whileUntil"/>
  <block type="controls_for">
    <value name="FROM"><shadow type="math_number"><field name="NUM">1</field></shadow></value>
    <value name="TO"><shadow type="math_number"><field name="NUM">10</field></shadow></value>
    <value name="BY"><shadow type="math_number"><field name="NUM">1</field></shadow></value>
  </block>
  <block type="controls_forEach"/>
  <block type="controls_flow_statements"/>
</xml>`},
	{name: "Math", color: "#5b67a5", blocks: `<xml>
  <block type="math_number"/>
  <block type="math_arithmetic">
    <value name="A"><shadow type="math_number"><field name="NUM">1</field></shadow></value>
    <value name="B"><shadow type="math_number"><field name="NUM">1</field></shadow></value>
  </block>
  <block type="math_single">
    <value name="NUM"><shadow type="math_number"><field name="NUM">9</field></shadow></value>
  </block>
  <block type="math_trig">
    <value name="NUM"><shadow type="math_number"><field name="NUM">45</field></shadow></value>
  </block>
  <block type="math_constant"/>
  <block type="math_number_property">
    <value name="NUMBER_TO_CHECK"><shadow type="math_number"><field name="NUM">0</field></shadow></value>
  </block>
  <block type="math_round">
    <value name="NUM"><shadow type="math_number"><field name="NUM">3.1</field></shadow></value>
  </block>
  <block type="math_on_list"/>
  <block type="math_modulo">
    <value name="DIVIDEND"><shadow type="math_number"><field name="NUM">64</field></shadow></value>
    <value name="DIVISOR"><shadow type="math_number"><field name="NUM">10</field></shadow></value>
  </block>
  <block type="math_constrain">
    <value name="VALUE"><shadow type="math_number"><field name="NUM">50</field></shadow></value>
    <value name="LOW"><shadow type="math_number"><field name="NUM">1</field></shadow></value>
    <value name="HIGH"><shadow type="math_number"><field name="NUM">100</field></shadow></value>
  </block>
  <block type="math_random_int">
    <value name="FROM"><shadow type="math_number"><field name="NUM">1</field></shadow></value>
    <value name="TO"><shadow type="math_number"><field name="NUM">100</field></shadow></value>
  </block>
  <block type="math_random_float"/>
</xml>`},
	{name: "Text", color: "#5ba58c", blocks: `<xml>
  <block type="text"/>
  <block type="text_join"/>
  <block type="text_append">
    <value name="TEXT"><shadow type="text"/></value>
  </block>
  <block type="text_length">
    <value name="VALUE"><shadow type="text"><field name="TEXT">abc</field></shadow></value>
  </block>
  <block type="text_isEmpty">
    <value name="VALUE"><shadow type="text"><field name="TEXT"/></shadow></value>
  </block>
  <block type="text_indexOf"/>
  <block type="text_charAt"/>
  <block type="text_getSubstring"/>
  <block type="text_changeCase">
    <value name="TEXT"><shadow type="text"><field name="TEXT">abc</field></shadow></value>
  </block>
  <block type="text_trim">
    <value name="TEXT"><shadow type="text"><field name="TEXT">abc</field></shadow></value>
  </block>
  <block type="text_print">
    <value name="TEXT"><shadow type="text"><field name="TEXT">abc</field></shadow></value>
  </block>
  <block type="text_prompt_ext">
    <value name="TEXT"><shadow type="text"><field name="TEXT">abc</field></shadow></value>
  </block>
</xml>`},
	{name: "Lists", color: "#745ba5", blocks: `<xml>
  <block type="lists_create_with">
    <mutation items="0"/>
  </block>
  <block type="lists_create_with"/>
  <block type="lists_repeat">
    <value name="NUM"><shadow type="math_number"><field name="NUM">5</field></shadow></value>
  </block>
  <block type="lists_length"/>
  <block type="lists_isEmpty"/>
  <block type="lists_indexOf"/>
  <block type="lists_getIndex"/>
  <block type="lists_setIndex"/>
  <block type="lists_getSublist"/>
  <block type="lists_split">
    <value name="DELIM"><shadow type="text"><field name="TEXT">,</field></shadow></value>
  </block>
  <block type="lists_sort"/>
</xml>`},
	{name: "Colour", color: "#a5745b", blocks: `<xml>
  <block type="colour_picker"/>
  <block type="colour_random"/>
  <block type="colour_rgb">
    <value name="RED"><shadow type="math_number"><field name="NUM">100</field></shadow></value>
    <value name="GREEN"><shadow type="math_number"><field name="NUM">50</field></shadow></value>
    <value name="BLUE"><shadow type="math_number"><field name="NUM">0</field></shadow></value>
  </block>
  <block type="colour_blend">
    <value name="COLOUR1"><shadow type="colour_picker"><field name="COLOUR">#ff0000</field></shadow></value>
    <value name="COLOUR2"><shadow type="colour_picker"><field name="COLOUR">#3333ff</field></shadow></value>
    <value name="RATIO"><shadow type="math_number"><field name="NUM">0.5</field></shadow></value>
  </block>
</xml>`},
	{name: "Variables", color: "#a55b80", customTag: CustomTagVariable, blocks: `<xml/>`},
	{name: "Functions", color: "#995ba5", customTag: CustomTagProcedure, blocks: `<xml/>`},
}

// StandardCategory returns a fresh template for a predefined category.
// The lookup ignores case. The template's id is never added to a model;
// use FactoryModel.CopyStandardCategory to insert it.
func StandardCategory(name string) (*ListElement, bool) {
	for _, sc := range standardCategories {
		if !strings.EqualFold(sc.name, strings.TrimSpace(name)) {
			continue
		}
		e := NewCategory(sc.name)
		e.SetColor(sc.color)
		e.SetCustomTag(sc.customTag)
		e.SaveContent(mustParseContent(sc.blocks))
		return e, true
	}
	return nil, false
}

// StandardCategoryNames lists the predefined categories in their usual order.
func StandardCategoryNames() []string {
	names := make([]string, 0, len(standardCategories))
	for _, sc := range standardCategories {
		names = append(names, sc.name)
	}
	return names
}

// ParseContent parses serialized block XML into a content tree.
// An empty string yields an empty <xml/> tree.
func ParseContent(s string) (*etree.Element, error) {
	if strings.TrimSpace(s) == "" {
		return EmptyContent(), nil
	}
	doc := etree.NewDocument()
	if err := doc.ReadFromString(s); err != nil {
		return nil, err
	}
	root := doc.Root()
	if root == nil {
		return EmptyContent(), nil
	}
	return root.Copy(), nil
}

func mustParseContent(s string) *etree.Element {
	el, err := ParseContent(s)
	if err != nil {
		panic("model: invalid standard category content: " + err.Error())
	}
	return el
}
