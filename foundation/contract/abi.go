package contract

import (
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// learnBlockABI is the interface of the deployed LearnBlock contract. Any
// change to the contract requires this to be updated byte for byte.
const learnBlockABI = `[
	{"type":"function","name":"getUserProfile","stateMutability":"view",
	 "inputs":[{"name":"user","type":"address"}],
	 "outputs":[
		{"name":"userId","type":"uint256"},
		{"name":"articlesRead","type":"uint256"},
		{"name":"quizzesTaken","type":"uint256"},
		{"name":"totalPointsEarned","type":"uint256"},
		{"name":"totalPointsRedeemed","type":"uint256"},
		{"name":"badgeCount","type":"uint256"},
		{"name":"goldenBadgeClaimed","type":"bool"}]},
	{"type":"function","name":"isRegistered","stateMutability":"view",
	 "inputs":[{"name":"user","type":"address"}],
	 "outputs":[{"name":"","type":"bool"}]},
	{"type":"function","name":"isTrustee","stateMutability":"view",
	 "inputs":[{"name":"account","type":"address"}],
	 "outputs":[{"name":"","type":"bool"}]},
	{"type":"function","name":"getContent","stateMutability":"view",
	 "inputs":[{"name":"contentId","type":"uint256"}],
	 "outputs":[
		{"name":"id","type":"uint256"},
		{"name":"title","type":"string"},
		{"name":"body","type":"string"},
		{"name":"sources","type":"string[]"},
		{"name":"points","type":"uint256"},
		{"name":"creator","type":"address"},
		{"name":"exists","type":"bool"}]},
	{"type":"function","name":"getAllContentIds","stateMutability":"view",
	 "inputs":[],
	 "outputs":[{"name":"","type":"uint256[]"}]},
	{"type":"function","name":"getQuizQuestionCount","stateMutability":"view",
	 "inputs":[{"name":"contentId","type":"uint256"}],
	 "outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"getQuizQuestion","stateMutability":"view",
	 "inputs":[{"name":"contentId","type":"uint256"},{"name":"index","type":"uint256"}],
	 "outputs":[
		{"name":"question","type":"string"},
		{"name":"options","type":"string[4]"},
		{"name":"correctOption","type":"uint8"}]},
	{"type":"function","name":"getUnredeemedPoints","stateMutability":"view",
	 "inputs":[{"name":"user","type":"address"}],
	 "outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"getUserBadges","stateMutability":"view",
	 "inputs":[{"name":"user","type":"address"}],
	 "outputs":[{"name":"","type":"uint256[]"}]},
	{"type":"function","name":"getUserCompletedContent","stateMutability":"view",
	 "inputs":[{"name":"user","type":"address"}],
	 "outputs":[{"name":"","type":"uint256[]"}]},
	{"type":"function","name":"readArticle","stateMutability":"nonpayable",
	 "inputs":[{"name":"contentId","type":"uint256"}],
	 "outputs":[]},
	{"type":"function","name":"submitQuiz","stateMutability":"nonpayable",
	 "inputs":[{"name":"contentId","type":"uint256"},{"name":"answers","type":"uint8[]"}],
	 "outputs":[]},
	{"type":"function","name":"createContent","stateMutability":"nonpayable",
	 "inputs":[
		{"name":"title","type":"string"},
		{"name":"body","type":"string"},
		{"name":"sources","type":"string[]"},
		{"name":"points","type":"uint256"}],
	 "outputs":[]},
	{"type":"function","name":"addQuizQuestion","stateMutability":"nonpayable",
	 "inputs":[
		{"name":"contentId","type":"uint256"},
		{"name":"question","type":"string"},
		{"name":"options","type":"string[4]"},
		{"name":"correctOption","type":"uint8"}],
	 "outputs":[]},
	{"type":"function","name":"claimXFI","stateMutability":"nonpayable",
	 "inputs":[{"name":"points","type":"uint256"}],
	 "outputs":[]},
	{"type":"event","name":"ContentCreated","anonymous":false,
	 "inputs":[
		{"name":"contentId","type":"uint256","indexed":true},
		{"name":"creator","type":"address","indexed":true},
		{"name":"title","type":"string","indexed":false}]},
	{"type":"event","name":"UserRegistered","anonymous":false,
	 "inputs":[
		{"name":"user","type":"address","indexed":true},
		{"name":"userId","type":"uint256","indexed":false}]},
	{"type":"event","name":"ArticleRead","anonymous":false,
	 "inputs":[
		{"name":"user","type":"address","indexed":true},
		{"name":"contentId","type":"uint256","indexed":true},
		{"name":"pointsEarned","type":"uint256","indexed":false}]},
	{"type":"event","name":"QuizCompleted","anonymous":false,
	 "inputs":[
		{"name":"user","type":"address","indexed":true},
		{"name":"contentId","type":"uint256","indexed":true},
		{"name":"score","type":"uint256","indexed":false},
		{"name":"pointsEarned","type":"uint256","indexed":false}]},
	{"type":"event","name":"XFIClaimed","anonymous":false,
	 "inputs":[
		{"name":"user","type":"address","indexed":true},
		{"name":"points","type":"uint256","indexed":false},
		{"name":"amount","type":"uint256","indexed":false}]}
]`

// parsed is the decoded form of learnBlockABI shared by every handle.
var parsed = mustParse(learnBlockABI)

func mustParse(def string) abi.ABI {
	a, err := abi.JSON(strings.NewReader(def))
	if err != nil {
		panic(err)
	}
	return a
}

// ABI returns the parsed contract interface.
func ABI() abi.ABI {
	return parsed
}
