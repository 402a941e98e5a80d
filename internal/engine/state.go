package engine

// State identifies a position in the conversation state machine. The set is
// closed: every transition lands on one of the constants below, and an
// unrecognized stored value is answered with a generic fallback message
// instead of a crash.
type State string

const (
	StateAwaitingLogin        State = "AWAITING_LOGIN"
	StateMainMenu             State = "MAIN_MENU"
	StatePassChooseProduct    State = "PASS_CHOOSE_PRODUCT"
	StatePassChooseRecurrence State = "PASS_CHOOSE_RECURRENCE"
	StatePassCollectLastName  State = "PASS_COLLECT_LAST_NAME"
	StatePassCollectFirstName State = "PASS_COLLECT_FIRST_NAME"
	StatePassCollectPhone     State = "PASS_COLLECT_PHONE"
	StatePassCollectBirthdate State = "PASS_COLLECT_BIRTHDATE"
	StatePassConfirm          State = "PASS_CONFIRM"
	StateCommissionsMenu      State = "COMMISSIONS_MENU"
	StateSimulatorChoice      State = "SIMULATOR_CHOICE"
	StateSimulatorCollect     State = "SIMULATOR_COLLECT"
)

// AllStates lists the closed state set.
func AllStates() []State {
	return []State{
		StateAwaitingLogin,
		StateMainMenu,
		StatePassChooseProduct,
		StatePassChooseRecurrence,
		StatePassCollectLastName,
		StatePassCollectFirstName,
		StatePassCollectPhone,
		StatePassCollectBirthdate,
		StatePassConfirm,
		StateCommissionsMenu,
		StateSimulatorChoice,
		StateSimulatorCollect,
	}
}

// Valid reports whether s is a member of the closed state set.
func (s State) Valid() bool {
	for _, st := range AllStates() {
		if s == st {
			return true
		}
	}
	return false
}
