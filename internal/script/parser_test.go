package script

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	kerrors "github.com/kitodo/kscript/internal/errors"
)

func TestTokenize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{"bare", "action:createFolders", []string{"action:createFolders"}},
		{"extra whitespace", "  action:addRole\t role:General \n", []string{"action:addRole", "role:General"}},
		{"quoted token", `action:addRole "tasktitle:Quality control" role:General`,
			[]string{"action:addRole", "tasktitle:Quality control", "role:General"}},
		{"quoted value", `label:"Run script"`, []string{"label:Run script"}},
		{"empty quotes", `a "" b`, []string{"a", "", "b"}},
		{"empty", "   ", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tokenize(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := tokenize(`action:addRole "tasktitle:Progress role:General`)
	require.ErrorIs(t, err, kerrors.ErrParse)
}

func TestParse_KeyValueActions(t *testing.T) {
	cmd, err := Parse(`action:addShellScriptToStep "tasktitle:Progress" "label:script" "script:/bin/true"`)
	require.NoError(t, err)
	assert.Equal(t, ActionAddShellScriptToStep, cmd.Action)
	assert.Equal(t, map[string]string{
		"tasktitle": "Progress",
		"label":     "script",
		"script":    "/bin/true",
	}, cmd.Params)
	assert.Empty(t, cmd.Assignments)

	v, ok := cmd.Param("label")
	assert.True(t, ok)
	assert.Equal(t, "script", v)

	cmd, err = Parse(`action:generateImages "folders:jpgs/max,jpgs/thumbs" images:all`)
	require.NoError(t, err)
	assert.Equal(t, ActionGenerateImages, cmd.Action)
	assert.Equal(t, "jpgs/max,jpgs/thumbs", cmd.Params["folders"])

	// The value keeps everything after the first colon.
	cmd, err = Parse(`action:addShellScriptToStep tasktitle:T label:L "script:C:\tools\run.bat"`)
	require.NoError(t, err)
	assert.Equal(t, `C:\tools\run.bat`, cmd.Params["script"])
}

func TestParse_Assignments(t *testing.T) {
	cmd, err := Parse("action:addData LegalNoteAndTermsOfUse=PDM1.0 TSL_ATS=@TSL_ATS Formula=a=b")
	require.NoError(t, err)
	assert.Equal(t, ActionAddData, cmd.Action)
	require.Len(t, cmd.Assignments, 3)

	assert.Equal(t, Assignment{Key: "LegalNoteAndTermsOfUse", Value: "PDM1.0", HasValue: true}, cmd.Assignments[0])
	assert.False(t, cmd.Assignments[0].IsRef())
	assert.True(t, cmd.Assignments[1].IsRef())
	assert.Equal(t, "TSL_ATS", cmd.Assignments[1].Ref())
	assert.Equal(t, "a=b", cmd.Assignments[2].Value)

	cmd, err = Parse("action:deleteData PublicationYear Licence=CC0")
	require.NoError(t, err)
	require.Len(t, cmd.Assignments, 2)
	assert.False(t, cmd.Assignments[0].HasValue)
	assert.True(t, cmd.Assignments[1].HasValue)
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name   string
		script string
		want   error
	}{
		{"empty", "", kerrors.ErrParse},
		{"no action key", "addRole role:General", kerrors.ErrParse},
		{"action not first", "role:General action:addRole", kerrors.ErrParse},
		{"unknown action", "action:formatDisk", kerrors.ErrUnknownAction},
		{"action name is case sensitive", "action:addrole tasktitle:T role:R", kerrors.ErrUnknownAction},
		{"param without colon", "action:addRole tasktitle:Progress General", kerrors.ErrParse},
		{"param with empty key", "action:addRole tasktitle:Progress :General", kerrors.ErrParse},
		{"duplicate param", "action:addRole tasktitle:A tasktitle:B role:R", kerrors.ErrParse},
		{"unterminated quote", `action:addRole "tasktitle:Progress role:General`, kerrors.ErrParse},
		{"missing tasktitle", "action:addRole role:General", kerrors.ErrMissingParameter},
		{"missing value", "action:setTaskProperty tasktitle:T property:validate", kerrors.ErrMissingParameter},
		{"missing folders", "action:generateImages images:all", kerrors.ErrMissingParameter},
		{"addData without assignment", "action:addData", kerrors.ErrMissingParameter},
		{"addData colon syntax", "action:addData key:value", kerrors.ErrParse},
		{"addData empty key", "action:addData =value", kerrors.ErrParse},
		{"addData empty ref", "action:addData key=@", kerrors.ErrParse},
		{"overwriteData bare key", "action:overwriteData key", kerrors.ErrParse},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd, err := Parse(tt.script)
			require.ErrorIs(t, err, tt.want)
			assert.Nil(t, cmd)
		})
	}
}

func TestMissingParameterIsParseError(t *testing.T) {
	_, err := Parse("action:setStepStatus status:3")
	require.ErrorIs(t, err, kerrors.ErrMissingParameter)
	require.ErrorIs(t, err, kerrors.ErrParse)
}

func TestActions(t *testing.T) {
	infos := Actions()
	require.Len(t, infos, len(actionTable))

	names := make(map[string]ActionInfo, len(infos))
	for _, info := range infos {
		names[info.Name] = info
	}
	for _, name := range []string{
		"createFolders", "addRole", "setStepStatus", "addShellScriptToStep",
		"setTaskProperty", "generateImages", "addData",
	} {
		assert.Contains(t, names, name)
	}
	assert.True(t, names["generateImages"].Async)
	assert.False(t, names["addRole"].Async)
	assert.Equal(t, []string{"tasktitle", "role"}, names["addRole"].Required)
	assert.Equal(t, []string{"KEY=VALUE"}, names["addData"].Required)
}

func TestAction_String(t *testing.T) {
	assert.Equal(t, "addRole", ActionAddRole.String())
	assert.Equal(t, "Action(99)", Action(99).String())
	assert.True(t, ActionGenerateImages.Async())
	assert.False(t, ActionAddData.Async())

	for _, spec := range actionTable {
		got, ok := lookupAction(spec.name)
		require.True(t, ok)
		assert.Equal(t, spec.action, got.action)
		assert.NotNil(t, spec.handler, spec.name)
	}
}
